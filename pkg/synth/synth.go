// Package synth renders a declared stack into the resources that Crossplane
// reconciles: AWS S3 managed resources for the bucket and Kubernetes objects
// for the one-shot deployment of the assets.
package synth

import (
	"errors"

	xpv1 "github.com/crossplane/crossplane-runtime/apis/common/v1"
	"github.com/vshn/dagbucket/pkg/stack"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	BucketResName            = "dag-bucket"
	VersioningResName        = "dag-bucket-versioning"
	PublicAccessBlockResName = "dag-bucket-public-access-block"
	PolicyResName            = "dag-bucket-policy"
	AssetsResName            = "dag-assets"
	SyncJobResName           = "dag-sync"

	defaultRegion    = "eu-central-1"
	defaultPartition = "aws"
	defaultNamespace = "dagbucket-system"
	defaultSyncImage = "docker.io/amazon/aws-cli:2.17.0"
)

var (
	// ErrBucketUnresolved is returned if the name of the bucket is neither
	// declared nor observed yet.
	ErrBucketUnresolved = errors.New("bucket name is not known yet")
)

// Options control how the stack is rendered.
type Options struct {
	// Prefix is prepended to all object names.
	Prefix string
	// Region is the AWS region of the bucket.
	Region string
	// Partition is the AWS partition, used to build ARNs.
	Partition string
	// ProviderConfig is the name of the AWS provider config.
	ProviderConfig string
	// Namespace where the sync job and its assets are deployed.
	Namespace string
	// SyncImage is the image of the sync job. It needs to provide `aws s3 sync` as entrypoint.
	SyncImage string
	// CredentialsSecret contains the AWS credentials for the sync job as environment variables.
	// If empty, the job relies on its service account.
	CredentialsSecret string
	// ServiceAccount of the sync job.
	ServiceAccount string
}

// DefaultOptions returns the options used if nothing else is configured.
func DefaultOptions() Options {
	return Options{
		Prefix:         "dags",
		Region:         defaultRegion,
		Partition:      defaultPartition,
		ProviderConfig: "default",
		Namespace:      defaultNamespace,
		SyncImage:      defaultSyncImage,
	}
}

// WithDefaults fills all empty fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Prefix == "" {
		o.Prefix = d.Prefix
	}
	if o.Region == "" {
		o.Region = d.Region
	}
	if o.Partition == "" {
		o.Partition = d.Partition
	}
	if o.ProviderConfig == "" {
		o.ProviderConfig = d.ProviderConfig
	}
	if o.Namespace == "" {
		o.Namespace = d.Namespace
	}
	if o.SyncImage == "" {
		o.SyncImage = d.SyncImage
	}
	return o
}

// Observed contains values that are assigned by the engine and can only be
// read back from the observed state.
type Observed struct {
	BucketName string
	BucketARN  string
}

// Resource is a managed resource that gets composed directly.
type Resource struct {
	// Name of the composed resource.
	Name   string
	Object metav1.Object
}

// KubeResource is a plain Kubernetes object that needs to be wrapped
// into a provider-kubernetes Object.
type KubeResource struct {
	// Name of the composed resource.
	Name           string
	Object         client.Object
	DeletionPolicy xpv1.DeletionPolicy
	// CelQuery determines readiness of the wrapped object, if set.
	CelQuery string
}

// BucketName returns the effective bucket name: the declared one or, if the
// engine generated it, the observed one.
func BucketName(b *stack.BucketSpec, obs Observed) (string, error) {
	if b.HasName() {
		return b.Name, nil
	}
	if obs.BucketName != "" {
		return obs.BucketName, nil
	}
	return "", ErrBucketUnresolved
}

// BucketARN returns the ARN of the bucket, either observed or derived from the name.
func BucketARN(b *stack.BucketSpec, opts Options, obs Observed) (string, error) {
	if obs.BucketARN != "" {
		return obs.BucketARN, nil
	}
	name, err := BucketName(b, obs)
	if err != nil {
		return "", err
	}
	return "arn:" + opts.WithDefaults().Partition + ":s3:::" + name, nil
}

func deletionPolicy(p stack.RemovalPolicy) xpv1.DeletionPolicy {
	if p == stack.Retain {
		return xpv1.DeletionOrphan
	}
	return xpv1.DeletionDelete
}
