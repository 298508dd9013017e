package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/coremint/coremint/internal/genericfile"
	"github.com/coremint/coremint/internal/wallet"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrive struct {
	signer   string
	existing string

	lookups atomic.Int64
	creates atomic.Int64
	uploads atomic.Int64
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/storage-account/"+f.existing:
		f.lookups.Add(1)
		fmt.Fprintf(w, `{"storage_account":%q}`, f.existing)
	case r.Method == http.MethodGet:
		f.lookups.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"storage account not found"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/storage-account":
		f.creates.Add(1)
		fmt.Fprint(w, `{"shdw_bucket":"created-acct"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/upload":
		f.uploads.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"error":%q}`, err.Error())
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"missing file"}`)
			return
		}
		sig, _ := base58.Decode(r.FormValue("signature"))
		if r.FormValue("signer") != f.signer || !wallet.Verify(f.signer, []byte(r.FormValue("message")), sig) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":"E_SIG","error":"bad signature"}`)
			return
		}
		account := r.FormValue("storage_account")
		fmt.Fprintf(w, `{"finalized_locations":["https://drive.example/%s/%s"],"upload_errors":[]}`, account, header.Filename)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"no route"}`)
	}
}

func newSHDWTest(t *testing.T, cfg SHDWConfig, existing string) (*SHDWBackend, *fakeDrive) {
	t.Helper()
	kp := newKeypair(t)
	fake := &fakeDrive{signer: kp.Address(), existing: existing}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.Endpoint = srv.URL
	b, err := newSHDWBackend(&cfg, kp)
	require.NoError(t, err)
	return b, fake
}

func TestSHDW_UploadToExistingAccount(t *testing.T) {
	b, fake := newSHDWTest(t, SHDWConfig{StorageAccount: "acct"}, "acct")

	file := genericfile.New([]byte("hello"), "hello.txt")
	uri, err := b.Upload(context.Background(), file, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example/acct/"+file.Key(), uri)

	_, err = b.Upload(context.Background(), genericfile.New([]byte("again"), "again.txt"), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), fake.lookups.Load(), "account resolved once")
	assert.Equal(t, int64(0), fake.creates.Load())
	assert.Equal(t, int64(2), fake.uploads.Load())
}

func TestSHDW_CreatesMissingAccount(t *testing.T) {
	b, fake := newSHDWTest(t, SHDWConfig{StorageAccount: "gone", CreateIfMissing: true, DefaultSizeMB: 10}, "acct")

	files := []*genericfile.File{
		genericfile.New([]byte("1"), "1.txt"),
		genericfile.New([]byte("2"), "2.txt"),
		genericfile.New([]byte("3"), "3.txt"),
	}
	uris, err := b.UploadMany(context.Background(), files, nil)
	require.NoError(t, err)
	require.Len(t, uris, 3)
	for i, f := range files {
		assert.Equal(t, "https://drive.example/created-acct/"+f.Key(), uris[i])
	}
	assert.Equal(t, int64(1), fake.creates.Load())
}

func TestSHDW_CreatesWhenNoAccountConfigured(t *testing.T) {
	b, fake := newSHDWTest(t, SHDWConfig{CreateIfMissing: true, DefaultSizeMB: 10}, "acct")

	_, err := b.Upload(context.Background(), genericfile.New([]byte("x"), "x.txt"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fake.lookups.Load())
	assert.Equal(t, int64(1), fake.creates.Load())
}

func TestSHDW_MissingAccountWithoutCreate(t *testing.T) {
	b, fake := newSHDWTest(t, SHDWConfig{StorageAccount: "gone"}, "acct")

	_, err := b.Upload(context.Background(), genericfile.New([]byte("x"), "x.txt"), nil)
	assert.ErrorIs(t, err, ErrStorageAccount)
	assert.Equal(t, int64(0), fake.uploads.Load())
}
