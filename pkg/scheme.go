package pkg

import (
	xkube "github.com/crossplane-contrib/provider-kubernetes/apis/object/v1alpha2"
	dagsv1 "github.com/vshn/dagbucket/apis/dags/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// SetupScheme returns a new scheme containing all types that get composed.
func SetupScheme() *runtime.Scheme {
	s := runtime.NewScheme()
	AddToScheme(s)
	return s
}

// AddToScheme adds all types that get composed to the given scheme.
func AddToScheme(s *runtime.Scheme) {
	_ = corev1.SchemeBuilder.AddToScheme(s)
	_ = batchv1.SchemeBuilder.AddToScheme(s)
	_ = xkube.SchemeBuilder.AddToScheme(s)
	_ = dagsv1.SchemeBuilder.AddToScheme(s)
}
