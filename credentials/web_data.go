package credentials

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

const (
	cookieJarFile  = "Cookies"
	cacheDir       = "Cache"
	cacheQuotaFile = "cache-quota"
	websiteDataDir = "WebsiteData"
)

// DirWebData is a WebDataStore for hosts that keep web content state in a
// directory: a cookie jar file, an HTTP cache directory and a website data
// directory.
type DirWebData struct {
	Root string
}

var _ WebDataStore = DirWebData{}

func (d DirWebData) RemoveAllCookies(context.Context) error {
	err := os.Remove(filepath.Join(d.Root, cookieJarFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[DirWebData.RemoveAllCookies]")
	}
	return nil
}

// SetCacheQuota records the quota and, for a zero quota, drops the cache.
func (d DirWebData) SetCacheQuota(_ context.Context, bytes int64) error {
	if bytes == 0 {
		if err := os.RemoveAll(filepath.Join(d.Root, cacheDir)); err != nil {
			return errors.Wrap(err, "[DirWebData.SetCacheQuota] remove cache")
		}
	}
	if err := os.MkdirAll(d.Root, 0o700); err != nil {
		return errors.Wrap(err, "[DirWebData.SetCacheQuota] mkdir")
	}
	quota := []byte(strconv.FormatInt(bytes, 10))
	if err := os.WriteFile(filepath.Join(d.Root, cacheQuotaFile), quota, 0o600); err != nil {
		return errors.Wrap(err, "[DirWebData.SetCacheQuota] write quota")
	}
	return nil
}

func (d DirWebData) RemoveAllRecords(context.Context) error {
	if err := os.RemoveAll(filepath.Join(d.Root, websiteDataDir)); err != nil {
		return errors.Wrap(err, "[DirWebData.RemoveAllRecords]")
	}
	return nil
}
