/*
Package migrate moves documents of the old flat layout into the namespaced layout.

Old deployments kept everything in a few documents directly below data/ (users.json,
servers.json, ...). Run copies their content, field by field, into the documents the
commands use today. The migration never overwrites data: a target that already holds
something other than an empty value is left alone. The legacy documents themselves are
not deleted.

	data/users.json {"balances": ...}  ->  data/economy/user_balances.json
	data/servers.json {"modlog": ...}  ->  data/moderation/server_configs.json
*/
package migrate
