// Package localfs provides a local-filesystem implementation of driven.BlobStore.
//
// Each namespace is a directory under the store's root, holding the files
// uploaded to one session (or one comparison staging area). Names are flat:
// path separators and parent references are rejected so a namespace only
// ever contains its own files.
package localfs
