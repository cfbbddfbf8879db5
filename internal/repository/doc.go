// Package repository defines the document-store abstraction shared by the
// guild API and the tree replicator.
//
// A document store is path addressed: named collections hold identified
// documents, and any document may own further named sub-collections.
//
// # Interfaces
//
// Source enumerates a tree lazily (root collections, the documents of a
// collection, the sub-collections of a document). Sink writes a single
// document with full-replace semantics. DocumentStore combines both with
// point reads and is what the HTTP services depend on.
//
// # Missing parents
//
// All implementations follow Firestore: writing users/alice/settings/prefs
// without ever writing users/alice makes "settings" visible through
// SubCollections(users/alice), but alice is not yielded when streaming the
// users collection. The replicator therefore always writes parent documents.
//
// # Implementations
//
//   - memory: in-process, used by tests and throwaway servers
//   - sqlite: a single local file (modernc.org/sqlite)
//   - firestore: Cloud Firestore or its emulator
//   - mongo: MongoDB, one collection per collection path
//   - dynamo: DynamoDB, one table holding the whole tree
package repository
