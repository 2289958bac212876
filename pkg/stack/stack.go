package stack

const (
	// DefaultAssetPath is the folder that gets uploaded if nothing else is configured.
	DefaultAssetPath = "./mwaa-ca-bucket-content"

	bucketID     = "mwaa-ca-bucket"
	deploymentID = "mwaa-dags-deployment"
)

// Config contains everything that is supplied from outside of the stack.
// It's filled once at the process boundary, the stack itself never reads
// the environment.
type Config struct {
	// BucketName is used as the literal bucket name, if set.
	BucketName string
	// AssetPath is the directory whose files get deployed into the bucket.
	AssetPath string
}

// S3Stack holds the declared bucket and the deployment of the DAG files into it.
type S3Stack struct {
	id         string
	bucket     *BucketSpec
	deployment *DeploymentSpec
}

// NewS3Stack declares the bucket and its deployment.
// The bucket always blocks public access, is versioned, enforces TLS and gets
// removed with all its contents once the stack is torn down.
func NewS3Stack(id string, cfg Config) *S3Stack {
	assetPath := cfg.AssetPath
	if assetPath == "" {
		assetPath = DefaultAssetPath
	}

	bucket := &BucketSpec{
		ID:                bucketID,
		Name:              cfg.BucketName,
		PublicAccess:      BlockAll,
		RemovalPolicy:     Destroy,
		AutoDeleteObjects: true,
		Versioned:         true,
		EnforceSSL:        true,
	}

	return &S3Stack{
		id:     id,
		bucket: bucket,
		deployment: &DeploymentSpec{
			ID:             deploymentID,
			Destination:    bucket,
			Sources:        []Asset{{Path: assetPath}},
			RetainOnDelete: false,
			Prune:          true,
		},
	}
}

// ID returns the id of the stack.
func (s *S3Stack) ID() string {
	return s.id
}

// Bucket returns the declared bucket, so other components can reference it.
func (s *S3Stack) Bucket() *BucketSpec {
	return s.bucket
}

// Deployment returns the declared deployment.
func (s *S3Stack) Deployment() *DeploymentSpec {
	return s.deployment
}
