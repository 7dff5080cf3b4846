package catalog

import "time"

// OriginServer is a physical streaming host assigned to one or more tenants.
type OriginServer struct {
	ID            string
	Address       string
	AdminUser     string
	AdminPassword string
	SSHPort       int
}

// Folder is a logical asset container with a storage quota, owned by a tenant.
type Folder struct {
	ID          string
	TenantID    string
	TenantLogin string
	Name        string
	CapacityMB  int64
	UsedMB      int64
}

// AvailableMB returns the remaining quota in whole megabytes.
func (f Folder) AvailableMB() int64 {
	avail := f.CapacityMB - f.UsedMB
	if avail < 0 {
		return 0
	}
	return avail
}

// Asset is a stored video belonging to a folder.
type Asset struct {
	ID              string
	FolderID        string
	RelPath         string
	Filename        string
	DurationSeconds int
	SizeBytes       int64
	Position        int
	CreatedAt       time.Time
}

// InsertAssetParams carries the fields recorded for a newly ingested asset.
type InsertAssetParams struct {
	FolderID        string
	RelPath         string
	Filename        string
	DurationSeconds int
	SizeBytes       int64
}
