package v1beta1

import (
	xpv1 "github.com/crossplane/crossplane-runtime/apis/common/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// BucketReference points a bucket configuration to its bucket.
type BucketReference struct {
	// Region of the referenced bucket.
	Region *string `json:"region"`

	// Bucket is the name of the bucket.
	Bucket *string `json:"bucket,omitempty"`

	// BucketRef references a Bucket object to populate Bucket.
	BucketRef *xpv1.Reference `json:"bucketRef,omitempty"`
}

// BucketVersioning controls the versioning state of a bucket.
type BucketVersioning struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   BucketVersioningSpec `json:"spec"`
	Status xpv1.ResourceStatus  `json:"status,omitempty"`
}

type BucketVersioningSpec struct {
	xpv1.ResourceSpec `json:",inline"`
	ForProvider       BucketVersioningParameters `json:"forProvider"`
}

type BucketVersioningParameters struct {
	BucketReference `json:",inline"`

	VersioningConfiguration []VersioningConfiguration `json:"versioningConfiguration,omitempty"`
}

// VersioningConfiguration describes the versioning state of a bucket.
type VersioningConfiguration struct {
	// MFADelete specifies whether MFA delete is enabled in the bucket versioning configuration.
	// +kubebuilder:validation:Enum=Enabled;Disabled
	MFADelete *string `json:"mfaDelete,omitempty"`

	// Status is the desired versioning state of the bucket.
	// +kubebuilder:validation:Enum=Enabled;Suspended
	Status *string `json:"status,omitempty"`
}

// BucketPublicAccessBlock blocks public access to a bucket.
type BucketPublicAccessBlock struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   BucketPublicAccessBlockSpec `json:"spec"`
	Status xpv1.ResourceStatus         `json:"status,omitempty"`
}

type BucketPublicAccessBlockSpec struct {
	xpv1.ResourceSpec `json:",inline"`
	ForProvider       BucketPublicAccessBlockParameters `json:"forProvider"`
}

type BucketPublicAccessBlockParameters struct {
	BucketReference `json:",inline"`

	// BlockPublicAcls rejects PUT requests that carry a public ACL.
	BlockPublicAcls *bool `json:"blockPublicAcls,omitempty"`
	// BlockPublicPolicy rejects bucket policies that allow public access.
	BlockPublicPolicy *bool `json:"blockPublicPolicy,omitempty"`
	// IgnorePublicAcls ignores all public ACLs on the bucket and its objects.
	IgnorePublicAcls *bool `json:"ignorePublicAcls,omitempty"`
	// RestrictPublicBuckets restricts access to the bucket to AWS principals
	// if it has a public policy.
	RestrictPublicBuckets *bool `json:"restrictPublicBuckets,omitempty"`
}

// BucketPolicy attaches a policy document to a bucket.
type BucketPolicy struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   BucketPolicySpec    `json:"spec"`
	Status xpv1.ResourceStatus `json:"status,omitempty"`
}

type BucketPolicySpec struct {
	xpv1.ResourceSpec `json:",inline"`
	ForProvider       BucketPolicyParameters `json:"forProvider"`
}

type BucketPolicyParameters struct {
	BucketReference `json:",inline"`

	// Policy is the JSON policy document.
	Policy *string `json:"policy,omitempty"`
}
