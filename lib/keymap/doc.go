// Package keymap translates logical document names into physical storage paths.
//
// Consumers address documents by short names (usually the name of the command
// that owns the data, e.g. "balance" or "warn"). Several names may share a
// single physical document. Resolve is a pure function without failure mode:
// names that are not part of the static table are still legal and are mapped
// by a small set of layout rules.
//
// Example:
//
//	keymap.Resolve("balance")                    // data/economy/user_balances.json
//	keymap.Resolve("economy/user_balances.json") // data/economy/user_balances.json
//	keymap.Resolve("giveaways.json")             // data/giveaways.json
//	keymap.Resolve("custom")                     // data/custom
//	keymap.Resolve("backups/x.json.bak")         // backups/x.json.bak
package keymap
