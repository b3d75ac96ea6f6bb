package model

// ScanResult reports the outcome of one flagging pass. Errors holds one
// message per failed appointment; a failed appointment never aborts the pass.
type ScanResult struct {
	ProcessedCount int      `json:"processed_count"`
	NewFlagsCount  int      `json:"new_flags_count"`
	Errors         []string `json:"errors"`
}
