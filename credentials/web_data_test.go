package credentials_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/stretchr/testify/require"
)

func TestDirWebData_Wipe(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cookies"), []byte("sid=1"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Cache", "objects"), 0o700))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "WebsiteData", "localstorage"), 0o700))

	w := credentials.DirWebData{Root: root}
	require.NoError(t, w.RemoveAllCookies(ctx))
	require.NoError(t, w.SetCacheQuota(ctx, 0))
	require.NoError(t, w.RemoveAllRecords(ctx))

	require.NoFileExists(t, filepath.Join(root, "Cookies"))
	require.NoDirExists(t, filepath.Join(root, "Cache"))
	require.NoDirExists(t, filepath.Join(root, "WebsiteData"))

	quota, err := os.ReadFile(filepath.Join(root, "cache-quota"))
	require.NoError(t, err)
	require.Equal(t, "0", string(quota))

	// Wiping an already clean directory is fine.
	require.NoError(t, w.RemoveAllCookies(ctx))
	require.NoError(t, w.RemoveAllRecords(ctx))
}
