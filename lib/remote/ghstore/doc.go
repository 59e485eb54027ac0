/*
Package ghstore implements remote.IRemoteStore on top of the GitHub contents API.

Every document is a file in a repository. Reads decode the base64 content of
the file and use the blob sha as version token. Writes send the token as "sha"
so GitHub rejects them when the file changed in between:

	GET    /repos/{owner}/{repo}/contents/{path}?ref={branch}
	PUT    /repos/{owner}/{repo}/contents/{path}   {message, content, sha, branch}
	DELETE /repos/{owner}/{repo}/contents/{path}   {message, sha, branch}

Status codes are mapped to remote return codes: 404 is RetCNotFound, 409 and 422
on writes are RetCConflict and everything else (401, 403, rate limits, 5xx,
timeouts) is RetCTransportError carrying the status. Nothing is retried.

Files larger than 1MB are returned without content by the API, they are fetched
again using the raw media type.
*/
package ghstore
