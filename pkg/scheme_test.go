package pkg

import (
	"testing"

	xkube "github.com/crossplane-contrib/provider-kubernetes/apis/object/v1alpha2"
	"github.com/stretchr/testify/assert"
	dagsv1 "github.com/vshn/dagbucket/apis/dags/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func TestSetupScheme(t *testing.T) {
	s := SetupScheme()

	tests := map[string]runtime.Object{
		"ConfigMap":  &corev1.ConfigMap{},
		"Job":        &batchv1.Job{},
		"Object":     &xkube.Object{},
		"XDagBucket": &dagsv1.XDagBucket{},
	}
	for kind, obj := range tests {
		t.Run(kind, func(t *testing.T) {
			kinds, _, err := s.ObjectKinds(obj)
			assert.NoError(t, err)
			assert.Equal(t, kind, kinds[0].Kind)
		})
	}
}
