// Package git wraps go-git plumbing for subtree synchronization: repository
// initialization, forced pulls with sparse checkout, subtree staging, commits
// with a CI identity, and authenticated pushes. Every operation receives the
// working directory through the Repo handle; nothing changes the process
// working directory.
package git
