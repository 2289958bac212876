package stack

// PublicAccessPolicy describes which kinds of public access are blocked on a bucket.
type PublicAccessPolicy string

const (
	// BlockAll blocks public ACLs and public bucket policies, and ignores
	// or restricts any that already exist.
	BlockAll PublicAccessPolicy = "BlockAll"
)

// RemovalPolicy determines what happens to a resource when its owning stack is removed.
type RemovalPolicy string

const (
	// Destroy removes the resource together with the stack.
	Destroy RemovalPolicy = "Destroy"
	// Retain keeps the resource after the stack is gone.
	Retain RemovalPolicy = "Retain"
)

// BucketSpec is the declarative description of the storage bucket.
type BucketSpec struct {
	// ID is the logical id of the bucket within the stack.
	ID string
	// Name is the literal bucket name. If empty the engine generates one.
	Name string

	PublicAccess  PublicAccessPolicy
	RemovalPolicy RemovalPolicy
	// AutoDeleteObjects purges all objects before the bucket gets removed.
	// Only meaningful together with RemovalPolicy Destroy.
	AutoDeleteObjects bool
	Versioned         bool
	// EnforceSSL denies any request that is not sent over TLS.
	EnforceSSL bool
}

// HasName returns true if the bucket name was supplied and is not left to the engine.
func (b *BucketSpec) HasName() bool {
	return b != nil && b.Name != ""
}

// PurgeOnRemoval returns true if the bucket and all of its contents
// get deleted once the stack is torn down.
func (b *BucketSpec) PurgeOnRemoval() bool {
	return b.RemovalPolicy == Destroy && b.AutoDeleteObjects
}

// DeploymentSpec describes a one-shot upload of local assets into a bucket.
type DeploymentSpec struct {
	// ID is the logical id of the deployment within the stack.
	ID string
	// Destination always points to a bucket of the same stack.
	Destination *BucketSpec
	Sources     []Asset
	// RetainOnDelete keeps the deployed objects if the deployment itself is removed.
	RetainOnDelete bool
	// Prune removes objects from the bucket that are not part of the sources.
	Prune bool
}
