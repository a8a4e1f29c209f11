package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPrefix  = "prefix"
	KeyRepo    = "repository"
	KeyBranch  = "branch"
	KeySubtree = "subtree"
	KeyDir     = "dir"
	KeyRunID   = "run_id"
	KeyAttempt = "attempt"
	KeyCommit  = "commit"
	KeyError   = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Prefix(p string) slog.Attr     { return slog.String(KeyPrefix, p) }
func Repository(r string) slog.Attr { return slog.String(KeyRepo, r) }
func Branch(b string) slog.Attr     { return slog.String(KeyBranch, b) }
func Subtree(s string) slog.Attr    { return slog.String(KeySubtree, s) }
func Dir(d string) slog.Attr        { return slog.String(KeyDir, d) }
func RunID(id string) slog.Attr     { return slog.String(KeyRunID, id) }
func Attempt(n int) slog.Attr       { return slog.Int(KeyAttempt, n) }

func Commit(hash string) slog.Attr {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return slog.String(KeyCommit, hash)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
