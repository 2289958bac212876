package synth

import (
	"encoding/json"
)

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                       `json:"Sid,omitempty"`
	Effect    string                       `json:"Effect"`
	Principal map[string]string            `json:"Principal"`
	Action    string                       `json:"Action"`
	Resource  []string                     `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

// EnforceSSLPolicy returns a bucket policy that denies every request to the
// bucket and its objects that is not sent over TLS.
func EnforceSSLPolicy(bucketARN string) string {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{
			{
				Sid:       "DenyInsecureTransport",
				Effect:    "Deny",
				Principal: map[string]string{"AWS": "*"},
				Action:    "s3:*",
				Resource:  []string{bucketARN, bucketARN + "/*"},
				Condition: map[string]map[string]string{
					"Bool": {"aws:SecureTransport": "false"},
				},
			},
		},
	}

	// Marshalling plain strings and maps can't fail.
	b, _ := json.Marshal(doc)
	return string(b)
}
