// Package subtree orchestrates the two halves of the subtree workflow: the
// Synchronizer brings a local working directory to a clean checkout of one
// subtree of a remote repository, and the Publisher stages, commits, and
// pushes subtree changes back with bounded retries and rebase-on-conflict
// semantics.
package subtree
