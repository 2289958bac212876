package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	xkube "github.com/crossplane-contrib/provider-kubernetes/apis/object/v1alpha2"
	xpv1 "github.com/crossplane/crossplane-runtime/apis/common/v1"
	xfnproto "github.com/crossplane/function-sdk-go/proto/v1"
	"github.com/crossplane/function-sdk-go/resource"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dagsv1 "github.com/vshn/dagbucket/apis/dags/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func testComposite() *dagsv1.XDagBucket {
	return &dagsv1.XDagBucket{
		TypeMeta: metav1.TypeMeta{
			APIVersion: dagsv1.GroupVersion.String(),
			Kind:       "XDagBucket",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: "mycomp",
		},
		Spec: dagsv1.XDagBucketSpec{
			Parameters: dagsv1.DagBucketParameters{
				Region: "eu-west-1",
			},
		},
	}
}

// toStruct keeps the status, observed state needs it.
func toStruct(t *testing.T, obj any) *structpb.Struct {
	jsonBytes, err := json.Marshal(obj)
	require.NoError(t, err)

	content := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(jsonBytes, &content))

	s, err := structpb.NewStruct(content)
	require.NoError(t, err)
	return s
}

func getTestRequest(t *testing.T, input map[string]string, comp any, observed map[string]any) *xfnproto.RunFunctionRequest {
	req := &xfnproto.RunFunctionRequest{
		Observed: &xfnproto.State{
			Composite: &xfnproto.Resource{Resource: toStruct(t, comp)},
			Resources: map[string]*xfnproto.Resource{},
		},
		Desired: &xfnproto.State{
			Composite: &xfnproto.Resource{Resource: toStruct(t, comp)},
		},
	}

	for name, obj := range observed {
		req.Observed.Resources[name] = &xfnproto.Resource{Resource: toStruct(t, obj)}
	}

	if input != nil {
		req.Input = toStruct(t, &corev1.ConfigMap{
			TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
			Data:     input,
		})
	}

	return req
}

func getTestRuntime(t *testing.T, comp any, observed map[string]any) *ServiceRuntime {
	req := getTestRequest(t, nil, comp, observed)
	sr, err := NewServiceRuntime(logr.Discard(), corev1.ConfigMap{}, req)
	require.NoError(t, err)
	sr.Fs = afero.NewMemMapFs()
	return sr
}

func TestManager_RunFunction(t *testing.T) {
	RegisterService("runtime-test", Service[*dagsv1.XDagBucket]{
		Steps: []Step[*dagsv1.XDagBucket]{
			{
				Name: "read-config",
				Execute: func(_ context.Context, comp *dagsv1.XDagBucket, svc *ServiceRuntime) *xfnproto.Result {
					if comp == nil {
						return NewFatalResult(errors.New("no composite"))
					}
					svc.SetConnectionDetail("BUCKET_NAME", []byte(svc.Config.Data["bucketName"]))
					return nil
				},
			},
			{
				Name: "warn",
				Execute: func(_ context.Context, _ *dagsv1.XDagBucket, _ *ServiceRuntime) *xfnproto.Result {
					return NewWarningResult("careful")
				},
			},
		},
	})

	tests := []struct {
		name        string
		input       map[string]string
		defaults    map[string]string
		wantErr     bool
		wantResults []string
		wantBucket  string
	}{
		{
			name:     "GivenRegisteredService_ThenExpectResultPerStep",
			input:    map[string]string{"serviceName": "runtime-test", "bucketName": "from-input"},
			defaults: map[string]string{"bucketName": "from-env"},
			wantResults: []string{
				"runtime-test step read-config result: ran successfully",
				"runtime-test step warn result: careful",
			},
			wantBucket: "from-input",
		},
		{
			name:     "GivenDefaultOnly_ThenExpectDefaultUsed",
			input:    map[string]string{"serviceName": "runtime-test"},
			defaults: map[string]string{"bucketName": "from-env"},
			wantResults: []string{
				"runtime-test step read-config result: ran successfully",
				"runtime-test step warn result: careful",
			},
			wantBucket: "from-env",
		},
		{
			name:    "GivenUnknownService_ThenExpectError",
			input:   map[string]string{"serviceName": "nope"},
			wantErr: true,
		},
		{
			name:    "GivenNoServiceName_ThenExpectError",
			input:   map[string]string{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(logr.Discard(), false, WithDefaults(tt.defaults), WithFs(afero.NewMemMapFs()))

			resp, err := m.RunFunction(context.TODO(), getTestRequest(t, tt.input, testComposite(), nil))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			msgs := []string{}
			for _, r := range resp.GetResults() {
				msgs = append(msgs, r.GetMessage())
			}
			assert.Equal(t, tt.wantResults, msgs)
			assert.Equal(t, tt.wantBucket, string(resp.GetDesired().GetComposite().GetConnectionDetails()["BUCKET_NAME"]))
		})
	}
}

func TestManager_RunFunction_ProxyMode(t *testing.T) {
	RegisterService("runtime-proxied", Service[*dagsv1.XDagBucket]{
		Steps: []Step[*dagsv1.XDagBucket]{
			{
				Name: "mark",
				Execute: func(_ context.Context, _ *dagsv1.XDagBucket, svc *ServiceRuntime) *xfnproto.Result {
					svc.SetConnectionDetail("SERVED_BY", []byte("backend"))
					return nil
				},
			},
		},
	})

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	xfnproto.RegisterFunctionRunnerServiceServer(srv, NewManager(logr.Discard(), false))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	bufDialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	failingDialer := grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})

	tests := []struct {
		name       string
		input      map[string]string
		dialer     grpc.DialOption
		wantErr    bool
		wantServed string
	}{
		{
			name:       "GivenProxyEndpoint_ThenExpectBackendResponse",
			input:      map[string]string{"serviceName": "runtime-proxied", "proxyEndpoint": "passthrough:///bufnet"},
			dialer:     bufDialer,
			wantServed: "backend",
		},
		{
			name:    "GivenNoProxyEndpoint_ThenExpectError",
			input:   map[string]string{"serviceName": "runtime-proxied"},
			dialer:  bufDialer,
			wantErr: true,
		},
		{
			name:    "GivenUnreachableEndpoint_ThenExpectError",
			input:   map[string]string{"serviceName": "runtime-proxied", "proxyEndpoint": "passthrough:///nowhere"},
			dialer:  failingDialer,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy := NewManager(logr.Discard(), true, WithProxyDialOptions(tt.dialer))
			req := getTestRequest(t, tt.input, testComposite(), nil)

			resp, err := proxy.RunFunction(context.Background(), req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantServed, string(resp.GetDesired().GetComposite().GetConnectionDetails()["SERVED_BY"]))
		})
	}
}

func TestManager_RunFunction_GivenWarning_ThenExpectMetrics(t *testing.T) {
	RegisterService("metrics-test", Service[*dagsv1.XDagBucket]{
		Steps: []Step[*dagsv1.XDagBucket]{
			{
				Name: "warn",
				Execute: func(_ context.Context, _ *dagsv1.XDagBucket, _ *ServiceRuntime) *xfnproto.Result {
					return NewWarningResult("careful")
				},
			},
		},
	})

	before := testutil.ToFloat64(stepResults.WithLabelValues("metrics-test", "warn", "warning"))
	runsBefore := testutil.ToFloat64(functionRuns.WithLabelValues("metrics-test"))

	m := NewManager(logr.Discard(), false)
	_, err := m.RunFunction(context.TODO(), getTestRequest(t, map[string]string{"serviceName": "metrics-test"}, testComposite(), nil))
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(stepResults.WithLabelValues("metrics-test", "warn", "warning")))
	assert.Equal(t, runsBefore+1, testutil.ToFloat64(functionRuns.WithLabelValues("metrics-test")))
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	// registering twice is rejected by prometheus
	assert.Error(t, RegisterMetrics(reg))
}

func TestServiceRuntime_SetDesiredKubeObject(t *testing.T) {
	svc := getTestRuntime(t, testComposite(), nil)

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "Dag_Assets",
			Namespace: "dags",
		},
		Data: map[string]string{"a": "b"},
	}

	err := svc.SetDesiredKubeObject(cm, "mycomp-assets",
		KubeOptionDeletionPolicy(xpv1.DeletionOrphan),
		KubeOptionCelReadiness("object.data.a == 'b'"),
	)
	require.NoError(t, err)

	kobj := &xkube.Object{}
	require.NoError(t, svc.GetDesiredComposedResourceByName(kobj, "mycomp-assets"))
	assert.Equal(t, "Object", kobj.Kind)
	assert.Equal(t, "kubernetes.crossplane.io/v1alpha2", kobj.APIVersion)
	assert.Equal(t, xpv1.DeletionOrphan, kobj.Spec.DeletionPolicy)
	assert.Equal(t, xkube.ReadinessPolicyDeriveFromCelQuery, kobj.Spec.Readiness.Policy)
	assert.Equal(t, "object.data.a == 'b'", kobj.Spec.Readiness.CelQuery)
	assert.Equal(t, providerConfigRefName, kobj.Spec.ProviderConfigReference.Name)

	got := &corev1.ConfigMap{}
	require.NoError(t, svc.GetDesiredKubeObject(got, "mycomp-assets"))
	assert.Equal(t, "ConfigMap", got.Kind)
	assert.Equal(t, "dag-assets", got.GetName())
	assert.Equal(t, "b", got.Data["a"])
}

func TestServiceRuntime_SetDesiredComposedResourceWithName(t *testing.T) {
	svc := getTestRuntime(t, testComposite(), nil)

	assert.Error(t, svc.SetDesiredComposedResourceWithName(map[string]any{"metadata": map[string]any{"name": "x"}}, "nokind"))

	obj := map[string]any{
		"apiVersion": "s3.aws.upbound.io/v1beta1",
		"kind":       "Bucket",
		"metadata":   map[string]any{"name": "x"},
		"status":     map[string]any{"atProvider": map[string]any{"arn": "arn:aws:s3:::x"}},
	}
	require.NoError(t, svc.SetDesiredComposedResourceWithName(obj, "bucket"))

	desired := svc.GetAllDesired()
	require.Contains(t, desired, resource.Name("bucket"))
	_, hasStatus := desired["bucket"].Resource.Object["status"]
	assert.False(t, hasStatus)

	svc.DeleteDesiredCompososedResource("bucket")
	assert.Empty(t, svc.GetAllDesired())
}

func TestServiceRuntime_GetObservedKubeObject(t *testing.T) {
	observed := map[string]any{
		"assets": &xkube.Object{
			TypeMeta: metav1.TypeMeta{APIVersion: xkube.SchemeGroupVersion.String(), Kind: xkube.ObjectKind},
			Status: xkube.ObjectStatus{
				AtProvider: xkube.ObjectObservation{
					Manifest: runtime.RawExtension{
						Object: &corev1.ConfigMap{
							ObjectMeta: metav1.ObjectMeta{Name: "observed"},
						},
					},
				},
			},
		},
		"empty": &xkube.Object{
			TypeMeta: metav1.TypeMeta{APIVersion: xkube.SchemeGroupVersion.String(), Kind: xkube.ObjectKind},
		},
	}
	svc := getTestRuntime(t, testComposite(), observed)

	cm := &corev1.ConfigMap{}
	require.NoError(t, svc.GetObservedKubeObject(cm, "assets"))
	assert.Equal(t, "observed", cm.GetName())

	assert.ErrorIs(t, svc.GetObservedKubeObject(cm, "empty"), ErrNotFound)
	assert.ErrorIs(t, svc.GetObservedKubeObject(cm, "missing"), ErrNotFound)
	assert.ErrorIs(t, svc.GetObservedComposedResource(&xkube.Object{}, "missing"), ErrNotFound)
}

func TestServiceRuntime_GetResponse(t *testing.T) {
	readyCondition := xpv1.ResourceStatus{
		ConditionedStatus: xpv1.ConditionedStatus{
			Conditions: []xpv1.Condition{xpv1.Available()},
		},
	}
	unreadyCondition := xpv1.ResourceStatus{
		ConditionedStatus: xpv1.ConditionedStatus{
			Conditions: []xpv1.Condition{xpv1.Unavailable()},
		},
	}
	observed := map[string]any{
		"ready": &xkube.Object{
			TypeMeta: metav1.TypeMeta{APIVersion: xkube.SchemeGroupVersion.String(), Kind: xkube.ObjectKind},
			Status:   xkube.ObjectStatus{ResourceStatus: readyCondition},
		},
		"unready": &xkube.Object{
			TypeMeta: metav1.TypeMeta{APIVersion: xkube.SchemeGroupVersion.String(), Kind: xkube.ObjectKind},
			Status:   xkube.ObjectStatus{ResourceStatus: unreadyCondition},
		},
	}
	svc := getTestRuntime(t, testComposite(), observed)

	for _, name := range []string{"ready", "unready", "new"} {
		require.NoError(t, svc.SetDesiredKubeObject(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: name}}, name))
	}

	comp := testComposite()
	comp.Status.BucketName = "my-dags-bucket"
	require.NoError(t, svc.SetDesiredCompositeStatus(comp))
	svc.SetConnectionDetail("BUCKET_NAME", []byte("my-dags-bucket"))
	svc.AddResult(NewNormalResult("done"))

	resp, err := svc.GetResponse()
	require.NoError(t, err)

	resources := resp.GetDesired().GetResources()
	assert.Equal(t, xfnproto.Ready_READY_TRUE, resources["ready"].GetReady())
	assert.NotEqual(t, xfnproto.Ready_READY_TRUE, resources["unready"].GetReady())
	assert.NotEqual(t, xfnproto.Ready_READY_TRUE, resources["new"].GetReady())

	status := resp.GetDesired().GetComposite().GetResource().GetFields()["status"].GetStructValue()
	require.NotNil(t, status)
	assert.Equal(t, "my-dags-bucket", status.GetFields()["bucketName"].GetStringValue())
	assert.Equal(t, []byte("my-dags-bucket"), resp.GetDesired().GetComposite().GetConnectionDetails()["BUCKET_NAME"])
	require.Len(t, resp.GetResults(), 1)
	assert.Equal(t, "done", resp.GetResults()[0].GetMessage())
}

func TestServiceRuntime_GetObservedComposite(t *testing.T) {
	svc := getTestRuntime(t, testComposite(), nil)

	comp := &dagsv1.XDagBucket{}
	require.NoError(t, svc.GetObservedComposite(comp))
	assert.Equal(t, "mycomp", comp.GetName())
	assert.Equal(t, "eu-west-1", comp.Spec.Parameters.Region)
}

func Test_newComposite(t *testing.T) {
	comp := newComposite[*dagsv1.XDagBucket]()
	require.NotNil(t, comp)
	assert.Empty(t, comp.GetName())

	assert.Equal(t, "", newComposite[string]())
}
