package commontest

import (
	"os"
	"path/filepath"
	"strings"

	fnv1 "github.com/crossplane/function-sdk-go/proto/v1"
	"github.com/crossplane/function-sdk-go/request"
	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

// LoadRuntimeFromFile returns a runtime for the request in the given file below `test/functions`.
// The runtime reads its assets from an empty in-memory filesystem.
func LoadRuntimeFromFile(t assert.TestingT, file string) *runtime.ServiceRuntime {
	req := LoadRequestFromFile(t, file)

	config := &corev1.ConfigMap{}
	err := request.GetInput(req, config)
	assert.NoError(t, err)

	svc, err := runtime.NewServiceRuntime(logr.Discard(), *config, req)
	assert.NoError(t, err)
	svc.Fs = afero.NewMemMapFs()

	return svc
}

// LoadRequestFromFile parses a YAML encoded RunFunctionRequest below `test/functions`.
func LoadRequestFromFile(t assert.TestingT, file string) *fnv1.RunFunctionRequest {
	p, _ := filepath.Abs(".")
	before, _, _ := strings.Cut(p, "pkg")
	b, err := os.ReadFile(filepath.Join(before, "test", "functions", file))
	if err != nil {
		assert.FailNow(t, "can't get example", err.Error())
	}

	js, err := yaml.YAMLToJSON(b)
	assert.NoError(t, err)

	req := &fnv1.RunFunctionRequest{}
	assert.NoError(t, protojson.Unmarshal(js, req))

	return req
}

// WriteAssets writes the given files below dir into the filesystem.
func WriteAssets(t assert.TestingT, fs afero.Fs, dir string, files map[string]string) {
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		assert.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		assert.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}
