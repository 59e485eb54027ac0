// Package testing provides a conformance test suite for implementations of
// the remote.IRemoteStore interface.
//
// The suite checks the contract the document store relies on: not-found
// reporting, content round trips (including non-ASCII text), version token
// preconditions for put and remove, and directory listings.
//
// Example usage:
//
//	func Test(t *testing.T) {
//		remotetesting.RunRemoteStoreTests(t, "MyRemote", func(t *testing.T) remote.IRemoteStore {
//			return NewMyRemote()
//		})
//	}
package testing
