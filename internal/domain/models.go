package domain

// ModelDescriptor describes one downloadable speech model in the catalog.
// Descriptors are immutable; catalog updates replace the whole set.
type ModelDescriptor struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	FileName    string `json:"fileName" yaml:"file_name"`
	DownloadURL string `json:"downloadUrl" yaml:"download_url"`
	SizeBytes   int64  `json:"sizeBytes" yaml:"size_bytes"`
	SHA256      string `json:"sha256" yaml:"sha256"`
	Description string `json:"description" yaml:"description"`
}

// ModelAsset is the on-disk view of a descriptor. It is computed per query
// and never cached because the file may change out of band.
type ModelAsset struct {
	Descriptor ModelDescriptor `json:"descriptor"`
	LocalPath  string          `json:"localPath"`
	Present    bool            `json:"present"`
	Usable     bool            `json:"usable"`
}

// DownloadInfo carries everything the download worker needs for one model.
type DownloadInfo struct {
	ModelID         string `json:"modelId"`
	DownloadURL     string `json:"downloadUrl"`
	DestinationPath string `json:"destinationPath"`
	SHA256          string `json:"sha256"`
	DisplayName     string `json:"displayName"`
	SizeBytes       int64  `json:"sizeBytes"`
}
