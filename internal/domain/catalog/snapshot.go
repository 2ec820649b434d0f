package catalog

// Snapshot holds the last-synced field values per package ID, used to detect
// no-op packages during reconciliation. It is process-local and rebuilt from
// successful sync outcomes; losing it on restart only forces one full re-diff.
//
// Snapshot is not safe for concurrent use. The synchronizer is its single
// writer and the non-reentrant run guard is the concurrency discipline.
type Snapshot struct {
	entries map[string]Package
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{entries: make(map[string]Package)}
}

// Get returns the last-synced package for the given ID, or nil if the package
// has never been synced successfully.
func (s *Snapshot) Get(packageID string) *Package {
	if pkg, ok := s.entries[packageID]; ok {
		return &pkg
	}
	return nil
}

// Put records a successfully synced package
func (s *Snapshot) Put(pkg Package) {
	s.entries[pkg.PackageID] = pkg
}

// Len returns the number of recorded packages
func (s *Snapshot) Len() int {
	return len(s.entries)
}
