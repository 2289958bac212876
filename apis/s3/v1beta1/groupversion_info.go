// Package v1beta1 contains the subset of the AWS S3 managed resources
// (s3.aws.upbound.io) that are composed for a DAG bucket.
package v1beta1

const (
	// Group of the S3 managed resources.
	Group = "s3.aws.upbound.io"
	// Version of the S3 managed resources.
	Version = "v1beta1"
	// APIVersion is the full group version string.
	APIVersion = Group + "/" + Version
)

const (
	BucketKind                  = "Bucket"
	BucketVersioningKind        = "BucketVersioning"
	BucketPublicAccessBlockKind = "BucketPublicAccessBlock"
	BucketPolicyKind            = "BucketPolicy"
)

const (
	// VersioningEnabled enables versioning on a bucket.
	VersioningEnabled = "Enabled"
	// VersioningSuspended suspends versioning on a bucket.
	VersioningSuspended = "Suspended"
)
