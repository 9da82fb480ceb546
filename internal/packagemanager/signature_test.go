package packagemanager

import (
	"context"
	"testing"
	"time"
)

func TestSignature_EndToEnd(t *testing.T) {
	rootPub, rootPriv, err := GenerateEd25519Keypair()
	if err != nil {
		t.Fatal(err)
	}

	rootCert, err := SelfSignRoot("Root CA", rootPub, rootPriv, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	ts := NewTrustStore()
	ts.AddRoot(rootPub)

	leafPub, leafPriv, err := GenerateEd25519Keypair()
	if err != nil {
		t.Fatal(err)
	}

	leafCert, err := IssueChild(rootCert, rootPriv, leafPub, "Publisher", time.Hour, []string{"package-sign"})
	if err != nil {
		t.Fatal(err)
	}

	chain := []Certificate{leafCert, rootCert}

	reg := NewInMemoryRegistry()
	ctx := context.Background()

	if _, err := reg.Publish(ctx, "pkg", "1.0.0", nil, []byte("content")); err != nil {
		t.Fatal(err)
	}

	store := NewInMemorySignatureStore()
	if _, err := SignPackage(ctx, reg, "pkg", "1.0.0", leafPriv, chain, store); err != nil {
		t.Fatal(err)
	}

	if err := VerifyPackage(ctx, reg, ts, "pkg", "1.0.0", store); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	scanner := NewInMemoryAdvisoryScanner()
	if err := ValidatePackageSecurity(ctx, reg, ts, "pkg", "1.0.0", store, scanner); err != nil {
		t.Fatalf("unexpected security validation error: %v", err)
	}

	scanner.Add("pkg", "1.0.0", "test advisory")
	if err := ValidatePackageSecurity(ctx, reg, ts, "pkg", "1.0.0", store, scanner); err == nil {
		t.Fatalf("expected vulnerability failure")
	}
}
