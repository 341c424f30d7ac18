package domain

import "encoding/json"

// RawRecord is one provider item as fetched, before normalization.
type RawRecord struct {
	Source         string          // adapter name that produced the record
	Kind           string          // provider schema, selects the normalizer
	Chain          Chain           // chain hint when the payload carries none
	DefaultHolders int             // placeholder holder estimate for this source
	FetchedAtMs    int64           // fetch time (ms), the only clock input to normalization
	Payload        json.RawMessage // one provider item
}
