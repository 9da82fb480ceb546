package packagemanager

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"
)

func TestInstallVerifiesDigestAndIsolatesMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)

	fooData := []byte("foo-package-bytes")
	barData := []byte("bar-package-bytes")

	shasums := map[string]string{
		"foo@1.0.0": Shasum(fooData),
		"bar@2.0.0": "0000000000000000000000000000000000000000000000000000000000000000",
	}

	plan := Plan{
		TopLevel: map[string]TopLevelEntry{
			"foo": {URL: "cid:foo", Version: "1.0.0"},
			"bar": {URL: "cid:bar", Version: "2.0.0"},
		},
	}

	fetcher.EXPECT().Download(gomock.Any(), Dist{Tarball: "cid:foo", Shasum: shasums["foo@1.0.0"]}).Return(fooData, nil)
	fetcher.EXPECT().Download(gomock.Any(), Dist{Tarball: "cid:bar", Shasum: shasums["bar@2.0.0"]}).Return(barData, nil)
	fetcher.EXPECT().Extract(gomock.Any(), fooData, gomock.Any()).Return(nil)

	results := Install(context.Background(), t.TempDir(), plan, shasums, fetcher, InstallerOptions{Concurrency: 2})

	byName := make(map[string]InstallResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	if err := byName["foo"].Err; err != nil {
		t.Fatalf("foo: expected success, got %v", err)
	}

	var mismatch *DigestMismatchError
	if err := byName["bar"].Err; !errors.As(err, &mismatch) {
		t.Fatalf("bar: expected DigestMismatchError, got %v", err)
	}

	if mismatch.Name != "bar" || mismatch.Version != "2.0.0" {
		t.Fatalf("unexpected mismatch details: %+v", mismatch)
	}
}

func TestInstallSkipsDigestCheckWhenShasumUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)

	data := []byte("unverified-bytes")

	plan := Plan{
		TopLevel: map[string]TopLevelEntry{
			"baz": {URL: "cid:baz", Version: "1.0.0"},
		},
	}

	fetcher.EXPECT().Download(gomock.Any(), Dist{Tarball: "cid:baz"}).Return(data, nil)
	fetcher.EXPECT().Extract(gomock.Any(), data, gomock.Any()).Return(nil)

	results := Install(context.Background(), t.TempDir(), plan, nil, fetcher, InstallerOptions{})

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("expected a single successful result, got %+v", results)
	}
}
