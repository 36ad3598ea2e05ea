package models

// MetadataUnknown is the placeholder for server metadata fields that were
// never discovered in the log. Downstream display code relies on the literal
// string instead of null handling.
const MetadataUnknown = "Unknown"

// ServerMetadata is the license server identity derived once per log.
// Fields keep their first discovered value; only the server name may be
// refined by a more specific pattern after a generic one.
type ServerMetadata struct {
	ServerName  string `json:"serverName"`
	Version     string `json:"version"`
	Port        string `json:"port"`
	VendorPort  string `json:"vendorPort"`
	PID         string `json:"pid"`
	LicenseFile string `json:"licenseFile"`
}

// NewServerMetadata returns metadata with every field set to the Unknown
// placeholder.
func NewServerMetadata() ServerMetadata {
	return ServerMetadata{
		ServerName:  MetadataUnknown,
		Version:     MetadataUnknown,
		Port:        MetadataUnknown,
		VendorPort:  MetadataUnknown,
		PID:         MetadataUnknown,
		LicenseFile: MetadataUnknown,
	}
}
