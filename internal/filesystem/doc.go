/*
Package filesystem wraps os.Stat and os.Open with retry logic for stale
NFS file handles.

Book libraries often live on network shares. When the server side changes
under an open handle the client sees ESTALE, which usually clears on the
next attempt. Only ESTALE triggers a retry; every other error is returned
immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

Defaults: 3 retries, 50ms initial backoff doubling up to 500ms.
Retry attempts, successes, failures and stale errors are counted in the
bookshelf_filesystem_* metrics.
*/
package filesystem
