package stack

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Stack(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantName  string
		wantAsset string
	}{
		{
			name:      "GivenBucketName_ThenExpectLiteralName",
			cfg:       Config{BucketName: "my-dags-bucket"},
			wantName:  "my-dags-bucket",
			wantAsset: DefaultAssetPath,
		},
		{
			name:      "GivenNoBucketName_ThenExpectNoName",
			cfg:       Config{},
			wantName:  "",
			wantAsset: DefaultAssetPath,
		},
		{
			name:      "GivenAssetPath_ThenExpectItAsSource",
			cfg:       Config{BucketName: "dags", AssetPath: "/srv/dags"},
			wantName:  "dags",
			wantAsset: "/srv/dags",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewS3Stack("S3Stack", tt.cfg)

			b := st.Bucket()
			assert.Equal(t, tt.wantName, b.Name)
			assert.Equal(t, tt.wantName != "", b.HasName())
			assert.Equal(t, BlockAll, b.PublicAccess)
			assert.Equal(t, Destroy, b.RemovalPolicy)
			assert.True(t, b.AutoDeleteObjects)
			assert.True(t, b.PurgeOnRemoval())
			assert.True(t, b.Versioned)
			assert.True(t, b.EnforceSSL)

			d := st.Deployment()
			assert.Same(t, b, d.Destination)
			assert.False(t, d.RetainOnDelete)
			assert.True(t, d.Prune)
			assert.Equal(t, []Asset{{Path: tt.wantAsset}}, d.Sources)
		})
	}
}

func TestNewS3Stack_IndependentInvocations(t *testing.T) {
	first := NewS3Stack("a", Config{BucketName: "one"})
	second := NewS3Stack("b", Config{BucketName: "two"})

	assert.Same(t, first.Bucket(), first.Deployment().Destination)
	assert.Same(t, second.Bucket(), second.Deployment().Destination)
	assert.NotSame(t, first.Bucket(), second.Deployment().Destination)
	assert.Equal(t, "a", first.ID())
}

func TestS3Stack_DeployedFiles(t *testing.T) {
	afs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(afs, "dags/dag_a.py", []byte("a"), 0644))
	require.NoError(t, afero.WriteFile(afs, "dags/dag_b.py", []byte("b"), 0644))

	st := NewS3Stack("S3Stack", Config{BucketName: "my-dags-bucket", AssetPath: "dags"})

	files, err := st.Deployment().Files(afs)
	require.NoError(t, err)

	assert.Equal(t, "my-dags-bucket", st.Deployment().Destination.Name)
	assert.Equal(t, []string{"dag_a.py", "dag_b.py"}, Keys(files))
}
