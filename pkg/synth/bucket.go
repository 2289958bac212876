package synth

import (
	xpv1 "github.com/crossplane/crossplane-runtime/apis/common/v1"
	"github.com/crossplane/crossplane-runtime/pkg/meta"
	s3v1beta1 "github.com/vshn/dagbucket/apis/s3/v1beta1"
	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
	"github.com/vshn/dagbucket/pkg/stack"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

// BucketResources renders the bucket and its configuration.
// The bucket policy enforcing TLS is only rendered once the ARN of the bucket
// can be determined, which is immediately for named buckets and after the
// first observation for generated names.
func BucketResources(b *stack.BucketSpec, opts Options, obs Observed) []Resource {
	opts = opts.WithDefaults()
	bucketObjName := ObjectName(opts, b.ID)

	res := []Resource{
		{Name: BucketResName, Object: newBucket(b, opts, bucketObjName)},
	}

	ref := s3v1beta1.BucketReference{
		Region:    ptr.To(opts.Region),
		BucketRef: &xpv1.Reference{Name: bucketObjName},
	}

	if b.Versioned {
		res = append(res, Resource{Name: VersioningResName, Object: &s3v1beta1.BucketVersioning{
			TypeMeta:   typeMeta(s3v1beta1.BucketVersioningKind),
			ObjectMeta: metav1.ObjectMeta{Name: bucketObjName + "-versioning"},
			Spec: s3v1beta1.BucketVersioningSpec{
				ResourceSpec: resourceSpec(b, opts),
				ForProvider: s3v1beta1.BucketVersioningParameters{
					BucketReference: ref,
					VersioningConfiguration: []s3v1beta1.VersioningConfiguration{
						{Status: ptr.To(s3v1beta1.VersioningEnabled)},
					},
				},
			},
		}})
	}

	if b.PublicAccess == stack.BlockAll {
		res = append(res, Resource{Name: PublicAccessBlockResName, Object: &s3v1beta1.BucketPublicAccessBlock{
			TypeMeta:   typeMeta(s3v1beta1.BucketPublicAccessBlockKind),
			ObjectMeta: metav1.ObjectMeta{Name: bucketObjName + "-public-access-block"},
			Spec: s3v1beta1.BucketPublicAccessBlockSpec{
				ResourceSpec: resourceSpec(b, opts),
				ForProvider: s3v1beta1.BucketPublicAccessBlockParameters{
					BucketReference:       ref,
					BlockPublicAcls:       ptr.To(true),
					BlockPublicPolicy:     ptr.To(true),
					IgnorePublicAcls:      ptr.To(true),
					RestrictPublicBuckets: ptr.To(true),
				},
			},
		}})
	}

	if b.EnforceSSL {
		arn, err := BucketARN(b, opts, obs)
		if err == nil {
			res = append(res, Resource{Name: PolicyResName, Object: &s3v1beta1.BucketPolicy{
				TypeMeta:   typeMeta(s3v1beta1.BucketPolicyKind),
				ObjectMeta: metav1.ObjectMeta{Name: bucketObjName + "-policy"},
				Spec: s3v1beta1.BucketPolicySpec{
					ResourceSpec: resourceSpec(b, opts),
					ForProvider: s3v1beta1.BucketPolicyParameters{
						BucketReference: ref,
						Policy:          ptr.To(EnforceSSLPolicy(arn)),
					},
				},
			}})
		}
	}

	return res
}

func newBucket(b *stack.BucketSpec, opts Options, objName string) *s3v1beta1.Bucket {
	bucket := &s3v1beta1.Bucket{
		TypeMeta: typeMeta(s3v1beta1.BucketKind),
		ObjectMeta: metav1.ObjectMeta{
			Name: objName,
		},
		Spec: s3v1beta1.BucketSpec{
			ResourceSpec: resourceSpec(b, opts),
			ForProvider: s3v1beta1.BucketParameters{
				Region:       ptr.To(opts.Region),
				ForceDestroy: ptr.To(b.PurgeOnRemoval()),
			},
		},
	}

	// Without an external name the provider falls back to the object name.
	if b.HasName() {
		meta.SetExternalName(bucket, b.Name)
	}

	return bucket
}

func resourceSpec(b *stack.BucketSpec, opts Options) xpv1.ResourceSpec {
	return xpv1.ResourceSpec{
		ProviderConfigReference: &xpv1.Reference{
			Name: opts.ProviderConfig,
		},
		DeletionPolicy: deletionPolicy(b.RemovalPolicy),
	}
}

func typeMeta(kind string) metav1.TypeMeta {
	return metav1.TypeMeta{
		APIVersion: s3v1beta1.APIVersion,
		Kind:       kind,
	}
}

// ObjectName returns a valid object name for the given logical id.
func ObjectName(opts Options, id string) string {
	return runtime.EscapeDNS1123Label(opts.WithDefaults().Prefix+"-"+id, 63)
}
