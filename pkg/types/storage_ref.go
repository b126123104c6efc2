package types

import "strings"

// StorageRef describes a blob held in the external object store. The values
// are produced by the upload pipeline and persisted verbatim.
type StorageRef struct {
	FileName   string `gorm:"column:file_name" json:"fileName" validate:"omitempty,max=512"`
	FileSize   int64  `gorm:"column:file_size" json:"fileSize" validate:"gte=0"`
	FileType   string `gorm:"column:file_type" json:"fileType" validate:"omitempty,max=255"`
	FileURL    string `gorm:"column:file_url" json:"fileUrl" validate:"omitempty,url"`
	StorageKey string `gorm:"column:storage_key" json:"storageKey" validate:"omitempty,max=1024"`
}

// Normalize trims surrounding whitespace and lowercases the MIME type.
func (s StorageRef) Normalize() StorageRef {
	return StorageRef{
		FileName:   strings.TrimSpace(s.FileName),
		FileSize:   s.FileSize,
		FileType:   strings.ToLower(strings.TrimSpace(s.FileType)),
		FileURL:    strings.TrimSpace(s.FileURL),
		StorageKey: strings.TrimSpace(s.StorageKey),
	}
}

// IsEmpty reports whether no attribute has been supplied.
func (s StorageRef) IsEmpty() bool {
	return s == StorageRef{}
}

// HashedStorageRef is a StorageRef whose bytes take part in deduplication.
// A nil ContentHash is stored as NULL and never collides in the unique index.
type HashedStorageRef struct {
	StorageRef
	ContentHash *string `gorm:"column:content_hash;uniqueIndex" json:"contentHash,omitempty" validate:"omitempty,sha256hex"`
}

// Normalize trims every attribute and lowercases the content hash.
func (h HashedStorageRef) Normalize() HashedStorageRef {
	out := HashedStorageRef{StorageRef: h.StorageRef.Normalize()}
	if h.ContentHash != nil {
		hash := strings.ToLower(strings.TrimSpace(*h.ContentHash))
		if hash != "" {
			out.ContentHash = &hash
		}
	}
	return out
}

// Hash returns the content hash or an empty string when absent.
func (h HashedStorageRef) Hash() string {
	if h.ContentHash == nil {
		return ""
	}
	return *h.ContentHash
}
