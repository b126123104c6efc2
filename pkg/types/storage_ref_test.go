package types

import "testing"

func TestHashedStorageRefNormalize(t *testing.T) {
	hash := "  ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789 "
	ref := HashedStorageRef{
		StorageRef: StorageRef{
			FileName:   "  draft.pdf ",
			FileSize:   2048,
			FileType:   " Application/PDF",
			FileURL:    " https://cdn.example.com/scripts/draft.pdf ",
			StorageKey: " scripts/u1/draft.pdf",
		},
		ContentHash: &hash,
	}

	got := ref.Normalize()
	if got.FileName != "draft.pdf" || got.FileType != "application/pdf" || got.StorageKey != "scripts/u1/draft.pdf" {
		t.Fatalf("unexpected normalized ref %+v", got.StorageRef)
	}
	if got.Hash() != "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789" {
		t.Fatalf("unexpected hash %q", got.Hash())
	}

	blank := "   "
	if (HashedStorageRef{ContentHash: &blank}).Normalize().ContentHash != nil {
		t.Fatalf("expected blank hash to normalize to nil")
	}
}

func TestStorageRefIsEmpty(t *testing.T) {
	if !(StorageRef{}).IsEmpty() {
		t.Fatalf("expected zero ref to be empty")
	}
	if (StorageRef{FileName: "a.png"}).IsEmpty() {
		t.Fatalf("expected populated ref to be non-empty")
	}
}
