package v1

import (
	xpv1 "github.com/crossplane/crossplane-runtime/apis/common/v1"
	crossplane "github.com/crossplane/crossplane/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +kubebuilder:object:root=true
// +kubebuilder:printcolumn:name="Bucket Name",type="string",JSONPath=".status.bucketName"
// +kubebuilder:printcolumn:name="Region",type="string",JSONPath=".spec.parameters.region"

// XDagBucket is the composite of a bucket holding workflow definitions
// for a managed Airflow environment.
type XDagBucket struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   XDagBucketSpec   `json:"spec"`
	Status XDagBucketStatus `json:"status,omitempty"`
}

// XDagBucketSpec defines the desired state of a XDagBucket.
type XDagBucketSpec struct {
	Parameters DagBucketParameters `json:"parameters,omitempty"`

	// WriteConnectionSecretToRef references a secret to which the connection details will be written.
	WriteConnectionSecretToRef NamespacedName                  `json:"writeConnectionSecretToRef,omitempty"`
	CompositionReference       crossplane.CompositionReference `json:"compositionRef,omitempty"`

	// ResourceRefs lists the composed resources, maintained by Crossplane.
	ResourceRefs []xpv1.TypedReference `json:"resourceRefs,omitempty"`
}

// DagBucketParameters are the configurable fields of a XDagBucket.
// The bucket name and the deployed files are not part of it, they are
// owned by the operator of the function.
type DagBucketParameters struct {
	// +kubebuilder:default="eu-central-1"

	// Region is the AWS region of the bucket.
	Region string `json:"region,omitempty"`

	// ProviderConfigRef is the name of the AWS provider config used for the bucket.
	// Defaults to the provider config of the function input.
	ProviderConfigRef string `json:"providerConfigRef,omitempty"`
}

// XDagBucketStatus reflects the observed state of a XDagBucket.
type XDagBucketStatus struct {
	// BucketName is the effective name of the bucket.
	BucketName string `json:"bucketName,omitempty"`
	// BucketArn is the ARN of the bucket.
	BucketArn string `json:"bucketArn,omitempty"`
	// AssetHash identifies the currently deployed set of files.
	AssetHash string `json:"assetHash,omitempty"`
	// DeployedFiles lists the keys of the deployed files.
	DeployedFiles []string `json:"deployedFiles,omitempty"`
}

// NamespacedName describes an object reference by its name and namespace
type NamespacedName struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name,omitempty"`
}
