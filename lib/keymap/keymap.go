package keymap

import (
	"path"
	"sort"
	"strings"
)

const (
	// DataRoot is the remote directory holding all documents
	DataRoot = "data"
	// BackupRoot is the remote directory holding backup snapshots
	BackupRoot = "backups"
)

// namespaces are the sub directories of DataRoot that are created on first run
var namespaces = []string{"economy", "leveling", "moderation", "features"}

// commandFiles maps command names to the document they persist to.
// Several commands share a single document.
var commandFiles = map[string]string{
	// economy
	"balance":     "economy/user_balances.json",
	"addcoins":    "economy/user_balances.json",
	"removecoins": "economy/user_balances.json",
	"setcoins":    "economy/user_balances.json",
	"daily":       "economy/daily_claims.json",
	"coinflip":    "economy/gambling_history.json",
	"dice":        "economy/gambling_history.json",

	// leveling
	"level":       "leveling/user_levels.json",
	"xp":          "leveling/user_levels.json",
	"addxp":       "leveling/user_levels.json",
	"removexp":    "leveling/user_levels.json",
	"setxp":       "leveling/user_levels.json",
	"resetlevels": "leveling/user_levels.json",
	"leaderboard": "leveling/user_levels.json",
	"levelroles":  "leveling/level_roles_config.json",
	"rankrole":    "leveling/rank_roles_config.json",

	// moderation
	"warn":          "moderation/user_warnings.json",
	"clearwarnings": "moderation/user_warnings.json",
	"warnings":      "moderation/user_warnings.json",
	"ban":           "moderation/temp_punishments.json",
	"tempban":       "moderation/temp_punishments.json",
	"kick":          "moderation/temp_punishments.json",
	"mute":          "moderation/temp_punishments.json",
	"unmute":        "moderation/temp_punishments.json",
	"timeout":       "moderation/temp_punishments.json",
	"untimeout":     "moderation/temp_punishments.json",
	"softban":       "moderation/temp_punishments.json",
	"massban":       "moderation/mass_actions.json",
	"purge":         "moderation/purge_logs.json",
	"slowmode":      "moderation/server_configs.json",
	"modlog":        "moderation/server_configs.json",
	"lock":          "moderation/channel_locks.json",
	"unlock":        "moderation/channel_locks.json",
	"lockall":       "moderation/channel_locks.json",
	"unlockall":     "moderation/channel_locks.json",
	"recreate":      "moderation/channel_actions.json",

	// features
	"timer":       "features/timers.json",
	"remindme":    "features/reminders.json",
	"poll":        "features/polls.json",
	"announce":    "features/announcements.json",
	"sendmessage": "features/custom_messages.json",
	"giveaway":    "features/giveaways.json",
	"antilink":    "features/antilink_configs.json",
	"filter":      "features/word_filters.json",
	"welcome":     "features/welcome_configs.json",
	"ff-verify":   "features/verification_data.json",

	// stats & info
	"ping":          "features/command_stats.json",
	"uptime":        "features/command_stats.json",
	"botinfo":       "features/command_stats.json",
	"stats":         "features/command_stats.json",
	"help":          "features/command_stats.json",
	"setup":         "features/setup_logs.json",
	"avatar":        "features/command_stats.json",
	"userinfo":      "features/command_stats.json",
	"serverinfo":    "features/command_stats.json",
	"serverinvite":  "features/command_stats.json",
	"channelinfo":   "features/command_stats.json",
	"roleinfo":      "features/command_stats.json",
	"oldestmembers": "features/command_stats.json",
	"nickname":      "features/member_changes.json",
	"weather":       "features/weather_requests.json",
}

// Resolve translates a logical key into the physical path of the document.
// The function is total: unmapped keys are legal and resolve by the following rules.
//
//  1. keys from the command table resolve to their document under DataRoot
//  2. keys containing a "/" whose first segment is a known namespace are placed under DataRoot,
//     any other key containing a "/" is already physical and returned unchanged
//  3. any other key is placed under DataRoot as is
func Resolve(key string) string {
	if file, ok := commandFiles[key]; ok {
		return path.Join(DataRoot, file)
	}

	if first, _, found := strings.Cut(key, "/"); found {
		if isNamespace(first) {
			return path.Join(DataRoot, key)
		}
		return key
	}

	return DataRoot + "/" + key
}

// Lookup returns the physical path a command is mapped to.
// The boolean is false for keys that are not part of the command table.
func Lookup(command string) (string, bool) {
	file, ok := commandFiles[command]
	if !ok {
		return "", false
	}
	return path.Join(DataRoot, file), true
}

// Table returns a copy of the command table with fully resolved physical paths
func Table() map[string]string {
	table := make(map[string]string, len(commandFiles))
	for command, file := range commandFiles {
		table[command] = path.Join(DataRoot, file)
	}
	return table
}

// Commands returns all mapped command names in sorted order
func Commands() []string {
	commands := make([]string, 0, len(commandFiles))
	for command := range commandFiles {
		commands = append(commands, command)
	}
	sort.Strings(commands)
	return commands
}

// Namespaces returns the physical directories that make up the expected layout,
// including the backup directory.
func Namespaces() []string {
	dirs := make([]string, 0, len(namespaces)+1)
	for _, ns := range namespaces {
		dirs = append(dirs, path.Join(DataRoot, ns))
	}
	return append(dirs, BackupRoot)
}

func isNamespace(segment string) bool {
	for _, ns := range namespaces {
		if ns == segment {
			return true
		}
	}
	return false
}
