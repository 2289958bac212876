package v1beta1

import (
	xpv1 "github.com/crossplane/crossplane-runtime/apis/common/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Bucket is an S3 bucket.
// The bucket name is taken from the `crossplane.io/external-name` annotation.
// If it's not set, the provider uses the generated object name.
type Bucket struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   BucketSpec   `json:"spec"`
	Status BucketStatus `json:"status,omitempty"`
}

type BucketSpec struct {
	xpv1.ResourceSpec `json:",inline"`
	ForProvider       BucketParameters `json:"forProvider"`
}

type BucketParameters struct {
	// Region is the AWS region of the bucket.
	Region *string `json:"region"`

	// ForceDestroy deletes all objects, including all versions, when the bucket is deleted.
	ForceDestroy *bool `json:"forceDestroy,omitempty"`

	// ObjectLockEnabled indicates whether this bucket has an object lock configuration enabled.
	ObjectLockEnabled *bool `json:"objectLockEnabled,omitempty"`

	Tags map[string]*string `json:"tags,omitempty"`
}

type BucketObservation struct {
	// Arn of the bucket.
	Arn *string `json:"arn,omitempty"`
	// BucketDomainName is the bucket domain name, e.g. bucketname.s3.amazonaws.com.
	BucketDomainName *string `json:"bucketDomainName,omitempty"`
	// ID is the name of the bucket.
	ID *string `json:"id,omitempty"`
	// Region the bucket resides in.
	Region *string `json:"region,omitempty"`
}

type BucketStatus struct {
	xpv1.ResourceStatus `json:",inline"`
	AtProvider          BucketObservation `json:"atProvider,omitempty"`
}
