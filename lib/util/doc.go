// Package util provides small building blocks shared by the transport layers.
//
// The package contains:
//   - functions: seeded FNV-1a hashing and random seed generation
//   - id: correlation id generation (hash based or UUID based)
//   - mapheap: a priority queue that also supports key-based access, used to
//     track request deadlines
package util
