package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"dario.cat/mergo"
	xkube "github.com/crossplane-contrib/provider-kubernetes/apis/object/v1alpha2"
	xpv1 "github.com/crossplane/crossplane-runtime/apis/common/v1"
	fnv1 "github.com/crossplane/function-sdk-go/proto/v1"
	"github.com/crossplane/function-sdk-go/request"
	"github.com/crossplane/function-sdk-go/resource"
	"github.com/crossplane/function-sdk-go/resource/composed"
	"github.com/crossplane/function-sdk-go/resource/composite"
	"github.com/crossplane/function-sdk-go/response"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/vshn/dagbucket/pkg"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

var (
	serviceRegistry = map[string]serviceRunner{}
	// the default provider kubernetes name
	providerConfigRefName = "kubernetes"
	// ErrNotFound is the errur returned, if the requested resource is not in the
	// the given function state (desired,observed).
	ErrNotFound = errors.New("not found")
)

// Step describes a single change within a service.
// Execute receives a fresh, empty composite of the service's type.
type Step[T any] struct {
	Name    string
	Execute func(context.Context, T, *ServiceRuntime) *fnv1.Result
}

// Service contains all steps necessary to provide the service.
type Service[T any] struct {
	Steps []Step[T]
}

type serviceRunner interface {
	run(ctx context.Context, name string, sr *ServiceRuntime)
}

func (s Service[T]) run(ctx context.Context, name string, sr *ServiceRuntime) {
	for _, step := range s.Steps {

		sr.Log.Info("Running step", "name", step.Name)

		timer := prometheus.NewTimer(stepDuration.WithLabelValues(name, step.Name))
		result := step.Execute(ctx, newComposite[T](), sr)
		timer.ObserveDuration()

		if result == nil {
			result = NewNormalResult(fmt.Sprintf("%s step %s result: ran successfully", name, step.Name))
		} else {
			result.Message = fmt.Sprintf("%s step %s result: %s", name, step.Name, result.Message)
		}
		stepResults.WithLabelValues(name, step.Name, severityLabel(result.Severity)).Inc()
		sr.AddResult(result)
	}
}

// newComposite returns a new zero value of T. Pointer types get allocated.
func newComposite[T any]() T {
	var comp T
	typ := reflect.TypeOf(comp)
	if typ != nil && typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem()).Interface().(T)
	}
	return comp
}

// ServiceRuntime holds the state for one given service.
// It keeps track of the changes that each step does.
// The actual response will be assembled at the end.
type ServiceRuntime struct {
	Log    logr.Logger
	Config corev1.ConfigMap
	// Fs is the filesystem local assets are read from.
	Fs   afero.Fs
	req  *fnv1.RunFunctionRequest
	resp *fnv1.RunFunctionResponse
	// Copy of the desired resources from the request. Will be added to the resp
	// once all steps are finished.
	desiredResources map[resource.Name]*resource.DesiredComposed
	// connectionDetails contains all connection details that should get added
	// to the desired composite.
	connectionDetails resource.ConnectionDetails
	results           []*fnv1.Result
	desiredComposite  *composite.Unstructured
}

// Manager manages all services and their steps.
// It also provides a proxy mode to offload any service to another GRPC endpoint.
type Manager struct {
	log       logr.Logger
	proxyMode bool
	defaults  map[string]string
	fs        afero.Fs
	dialOpts  []grpc.DialOption
	fnv1.UnimplementedFunctionRunnerServiceServer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDefaults sets process wide defaults for the function input.
// Keys present in the function input take precedence.
func WithDefaults(defaults map[string]string) ManagerOption {
	return func(m *Manager) {
		m.defaults = defaults
	}
}

// WithFs sets the filesystem that is handed to every ServiceRuntime.
func WithFs(fs afero.Fs) ManagerOption {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithProxyDialOptions adds options used to connect to the proxy endpoint.
func WithProxyDialOptions(opts ...grpc.DialOption) ManagerOption {
	return func(m *Manager) {
		m.dialOpts = append(m.dialOpts, opts...)
	}
}

// RegisterService will register a service to the map of all services.
func RegisterService[T any](name string, svc Service[T]) {
	serviceRegistry[name] = svc
}

// NewManager creates a new manager.
func NewManager(log logr.Logger, proxyMode bool, opts ...ManagerOption) *Manager {
	m := &Manager{
		log:       log,
		proxyMode: proxyMode,
		defaults:  map[string]string{},
		fs:        afero.NewOsFs(),
		dialOpts:  []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func init() {
	pkg.AddToScheme(composed.Scheme)
}

// RunFunction implements the crossplane composition function `FunctionRunnerServiceServer` interface.
func (m Manager) RunFunction(ctx context.Context, req *fnv1.RunFunctionRequest) (*fnv1.RunFunctionResponse, error) {

	if m.proxyMode {
		return m.proxyFunction(ctx, req)
	}

	m.log.V(1).Info("Function triggered")

	// errResp is only used to return a valid response in case of errors
	errResp := response.To(req, response.DefaultTTL)

	// Get the comp functions input, previously called config.
	config := &corev1.ConfigMap{}
	if err := request.GetInput(req, config); err != nil {
		response.Fatal(errResp, errors.Wrapf(err, "cannot get Function input from %T", req))
		return errResp, err
	}
	m.applyDefaults(config)

	// Determine which service should be reconciled.
	service, ok := config.Data["serviceName"]
	if !ok {
		return errResp, fmt.Errorf("composition function input does not contian the name of the service")
	}

	m.log.Info("Running service", "name", service)
	functionRuns.WithLabelValues(service).Inc()

	function, found := serviceRegistry[service]
	if !found {
		return errResp, fmt.Errorf("no function found for service: %s", service)
	}

	sr, err := NewServiceRuntime(m.log, *config, req)
	if err != nil {
		return errResp, err
	}
	sr.Fs = m.fs

	function.run(ctx, service, sr)

	return sr.GetResponse()
}

func (m *Manager) applyDefaults(config *corev1.ConfigMap) {
	if config.Data == nil {
		config.Data = map[string]string{}
	}
	for k, v := range m.defaults {
		if _, ok := config.Data[k]; !ok {
			config.Data[k] = v
		}
	}
}

func (m *Manager) proxyFunction(ctx context.Context, req *fnv1.RunFunctionRequest) (*fnv1.RunFunctionResponse, error) {

	m.log.Info("Proxying request")

	// errResp is only used to return a valid response in case of errors
	errResp := response.To(req, response.DefaultTTL)

	// Get the comp functions input, previously called config.
	config := &corev1.ConfigMap{}
	if err := request.GetInput(req, config); err != nil {
		response.Fatal(errResp, errors.Wrapf(err, "cannot get Function input from %T", req))
		return errResp, err
	}

	endpoint, ok := config.Data["proxyEndpoint"]
	if !ok {
		return errResp, fmt.Errorf("no proxyEndpoint specified")
	}

	con, err := grpc.NewClient(endpoint, m.dialOpts...)
	if err != nil {
		return errResp, err
	}
	defer con.Close()

	rsp, err := fnv1.NewFunctionRunnerServiceClient(con).RunFunction(ctx, req)
	if err != nil {
		return errResp, errors.Wrapf(err, "cannot proxy request to %s", endpoint)
	}

	return rsp, nil
}

// NewServiceRuntime returns a new runtime for a given service.
func NewServiceRuntime(l logr.Logger, config corev1.ConfigMap, req *fnv1.RunFunctionRequest) (*ServiceRuntime, error) {

	desiredResources, err := request.GetDesiredComposedResources(req)
	if err != nil {
		return &ServiceRuntime{}, err
	}

	comp, err := request.GetDesiredCompositeResource(req)
	if err != nil {
		return &ServiceRuntime{}, err
	}

	connectionDetails := comp.ConnectionDetails
	if connectionDetails == nil {
		connectionDetails = resource.ConnectionDetails{}
	}

	return &ServiceRuntime{
		Log:               l,
		Config:            config,
		Fs:                afero.NewOsFs(),
		req:               req,
		desiredResources:  desiredResources,
		connectionDetails: connectionDetails,
		results:           []*fnv1.Result{},
		desiredComposite:  comp.Resource,
	}, nil
}

// GetResponse returns the response with all desired resources set.
// This is the raw GRPC response for crossplane.
// If at any time s.SetRespones() was called, then this function will
// return the set response.
func (s *ServiceRuntime) GetResponse() (*fnv1.RunFunctionResponse, error) {

	if s.resp != nil {
		return s.resp, nil
	}

	resp := response.To(s.req, response.DefaultTTL)

	err := s.checkReadiness()
	if err != nil {
		return nil, err
	}

	err = response.SetDesiredComposedResources(resp, s.desiredResources)
	if err != nil {
		return nil, err
	}

	comp, err := request.GetDesiredCompositeResource(s.req)
	if err != nil {
		return nil, err
	}

	comp.ConnectionDetails = s.connectionDetails
	if s.desiredComposite != nil {
		comp.Resource = s.desiredComposite
	}

	err = response.SetDesiredCompositeResource(resp, comp)

	resp.Results = append(resp.Results, s.results...)

	return resp, err
}

// ToComposed converts any typed managed resource into its unstructured form.
// The status is dropped, it's owned by the provider.
func ToComposed(obj any) (*composed.Unstructured, error) {
	jsonBytes, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	content := map[string]interface{}{}
	err = json.Unmarshal(jsonBytes, &content)
	if err != nil {
		return nil, err
	}
	delete(content, "status")

	return &composed.Unstructured{Unstructured: unstructured.Unstructured{Object: content}}, nil
}

// SetDesiredComposedResourceWithName adds the given managed resource to the desired resources.
// The object needs to have its apiVersion and kind set.
func (s *ServiceRuntime) SetDesiredComposedResourceWithName(obj any, name string) error {

	unstructuredObj, err := ToComposed(obj)
	if err != nil {
		return err
	}
	if unstructuredObj.GetKind() == "" {
		return fmt.Errorf("composed resource %s has no kind", name)
	}

	s.desiredResources[resource.Name(name)] = &resource.DesiredComposed{Resource: unstructuredObj}
	return nil
}

// KubeOption modifies the provider-kubernetes Object an object gets wrapped into.
type KubeOption func(*xkube.Object)

// KubeOptionDeletionPolicy sets what happens with the wrapped object if the Object gets deleted.
func KubeOptionDeletionPolicy(policy xpv1.DeletionPolicy) KubeOption {
	return func(obj *xkube.Object) {
		obj.Spec.DeletionPolicy = policy
	}
}

// KubeOptionCelReadiness derives the readiness of the Object from a CEL query against the wrapped object.
func KubeOptionCelReadiness(query string) KubeOption {
	return func(obj *xkube.Object) {
		obj.Spec.Readiness = xkube.Readiness{
			Policy:   xkube.ReadinessPolicyDeriveFromCelQuery,
			CelQuery: query,
		}
	}
}

// SetDesiredKubeObject takes any `runtime.Object`, puts it into a provider-kubernetes Object and then
// adds it to the desired composed resources.
func (s *ServiceRuntime) SetDesiredKubeObject(obj client.Object, objectName string, opts ...KubeOption) error {
	return s.SetDesiredKubeObjectWithName(obj, objectName, objectName, opts...)
}

// SetDesiredKubeObjectWithName takes any `runtime.Object`, puts it into a provider-kubernetes Object and then
// adds it to the desired composed resources with the specified resource name.
func (s *ServiceRuntime) SetDesiredKubeObjectWithName(obj client.Object, objectName, resourceName string, opts ...KubeOption) error {

	kobj, err := NewKubeObject(obj, objectName, opts...)
	if err != nil {
		return err
	}

	return s.SetDesiredComposedResourceWithName(kobj, resourceName)
}

// NewKubeObject wraps the given object into a provider-kubernetes Object.
func NewKubeObject(o client.Object, kon string, opts ...KubeOption) (*xkube.Object, error) {

	kind, _, err := composed.Scheme.ObjectKinds(o)
	if err != nil {
		return nil, fmt.Errorf("cannot determine object kind, have you registered it in the scheme: %w", err)
	}

	o.GetObjectKind().SetGroupVersionKind(kind[0])
	escapeK8sNames(o)

	// Crossplane uses apply to create and update objects.
	// If we pass an object that already has a populated "kubectl.kubernetes.io/last-applied-configuration"
	// annotation, then it will keep growing with each reconcile.
	// So we reset it here to make sure this doesn't happen.
	annotations := o.GetAnnotations()
	if annotations != nil {
		annotations["kubectl.kubernetes.io/last-applied-configuration"] = ""
		o.SetAnnotations(annotations)
	}

	ko := &xkube.Object{
		TypeMeta: metav1.TypeMeta{
			Kind:       xkube.ObjectKind,
			APIVersion: xkube.SchemeGroupVersion.String(),
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: kon,
		},
		Spec: xkube.ObjectSpec{
			ResourceSpec: xpv1.ResourceSpec{
				ProviderConfigReference: &xpv1.Reference{
					Name: providerConfigRefName,
				},
			},
		},
	}

	ko.Spec.ForProvider.Manifest = runtime.RawExtension{Object: o}

	for _, opt := range opts {
		opt(ko)
	}

	return ko, nil
}

// GetObservedComposite returns the observed composite and unmarshals it into the given object.
func (s *ServiceRuntime) GetObservedComposite(obj client.Object) error {
	comp, err := request.GetObservedCompositeResource(s.req)
	if err != nil {
		return err
	}

	jsonBytes, err := comp.Resource.MarshalJSON()
	if err != nil {
		return err
	}

	return json.Unmarshal(jsonBytes, obj)
}

// SetDesiredCompositeStatus takes the given composite and updates the status accordingly.
// All other fields will not be updated by crossplane.
func (s *ServiceRuntime) SetDesiredCompositeStatus(obj client.Object) error {
	if s.desiredComposite == nil {
		s.desiredComposite = &composite.Unstructured{
			Unstructured: unstructured.Unstructured{},
		}
	}

	jsonString, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	tmp := &composite.Unstructured{}

	err = json.Unmarshal(jsonString, tmp)
	if err != nil {
		return err
	}

	err = mergo.Merge(&s.desiredComposite.Unstructured, tmp.Unstructured, mergo.WithOverride)
	if err != nil {
		return err
	}

	// metadata.managedFields needs to be nil.
	s.desiredComposite.SetManagedFields(nil)
	// also no resource references allowed
	s.desiredComposite.SetResourceReferences(nil)

	return nil
}

// SetConnectionDetail will add the given name/value pair to the map containing all
// desired connection details of the composite. Be careful to not override existing keys.
func (s *ServiceRuntime) SetConnectionDetail(name string, value []byte) {
	s.connectionDetails[name] = value
}

// GetConnectionDetails returns all current connection details for the current
// composite.
func (s *ServiceRuntime) GetConnectionDetails() map[string][]byte {
	return s.connectionDetails
}

// GetObservedComposedResource returns and unmarshals the observed object into the given managed resource.
func (s *ServiceRuntime) GetObservedComposedResource(obj any, name string) error {
	resources, err := request.GetObservedComposedResources(s.req)
	if err != nil {
		return err
	}
	if res, ok := resources[resource.Name(name)]; ok {
		jsonString, err := res.Resource.Unstructured.MarshalJSON()
		if err != nil {
			return err
		}
		return json.Unmarshal(jsonString, obj)
	}

	return ErrNotFound
}

// GetDesiredComposedResourceByName will return a desired composed resource from the request.
// Use this, if you want anything from a previous function in the pipeline.
func (s *ServiceRuntime) GetDesiredComposedResourceByName(obj any, name string) error {
	if res, ok := s.desiredResources[resource.Name(name)]; ok {
		jsonString, err := res.Resource.Unstructured.MarshalJSON()
		if err != nil {
			return err
		}
		return json.Unmarshal(jsonString, obj)
	}

	return ErrNotFound
}

// AddResult will add any result the the list of results
func (s *ServiceRuntime) AddResult(result *fnv1.Result) {
	s.results = append(s.results, result)
}

// NewFatalResult creates a new result with the `FATAL` severity.
// The pipeline will be considdered failed.
func NewFatalResult(err error) *fnv1.Result {
	return &fnv1.Result{
		Severity: fnv1.Severity_SEVERITY_FATAL,
		Message:  err.Error(),
	}
}

// NewWarningResult will return a new warning.
// The pipelines will run through and are not considdered failed.
func NewWarningResult(message string) *fnv1.Result {
	return &fnv1.Result{
		Severity: fnv1.Severity_SEVERITY_WARNING,
		Message:  message,
	}
}

// NewNormalResult creates a new resul with the `NORMAL` severity.
func NewNormalResult(message string) *fnv1.Result {
	return &fnv1.Result{
		Severity: fnv1.Severity_SEVERITY_NORMAL,
		Message:  message,
	}
}

// GetObservedKubeObject returns the object as is on the cluster.
func (s *ServiceRuntime) GetObservedKubeObject(obj client.Object, name string) error {
	resources, err := request.GetObservedComposedResources(s.req)
	if err != nil {
		return err
	}

	res, ok := resources[resource.Name(name)]
	if !ok {
		return ErrNotFound
	}

	kube := &xkube.Object{}

	jsonBytes, err := res.Resource.MarshalJSON()
	if err != nil {
		return err
	}

	err = json.Unmarshal(jsonBytes, kube)
	if err != nil {
		return err
	}

	if len(kube.Status.AtProvider.Manifest.Raw) == 0 {
		return ErrNotFound
	}

	return json.Unmarshal(kube.Status.AtProvider.Manifest.Raw, obj)
}

// GetDesiredKubeObject returns the object wrapped in the desired provider-kubernetes Object.
func (s *ServiceRuntime) GetDesiredKubeObject(obj client.Object, name string) error {
	res, ok := s.desiredResources[resource.Name(name)]
	if !ok {
		return ErrNotFound
	}

	kube := &xkube.Object{}

	jsonBytes, err := res.Resource.MarshalJSON()
	if err != nil {
		return err
	}

	err = json.Unmarshal(jsonBytes, kube)
	if err != nil {
		return err
	}

	return json.Unmarshal(kube.Spec.ForProvider.Manifest.Raw, obj)
}

// checkReadiness checks the readiness of all composed objects.
// As of comp functions beta, we need to make sure that all resources are ready
// by ourselves.
func (s *ServiceRuntime) checkReadiness() error {
	observed, err := request.GetObservedComposedResources(s.req)
	if err != nil {
		return fmt.Errorf("cannot get observed composed resources from %w", err)
	}

	desired := s.desiredResources

	s.Log.V(1).Info("Running readiness check for objects", "count", len(desired))

	// Our goal here is to automatically determine (from the Ready status
	// condition) whether existing composed resources are ready.
	for name, dr := range desired {
		log := s.Log.WithValues("composed-resource-name", name)

		// If this desired resource doesn't exist in the observed resources, it
		// can't be ready because it doesn't yet exist.
		or, ok := observed[name]
		if !ok {
			log.V(1).Info("Ignoring desired resource that does not appear in observed resources")
			continue
		}

		// A previous Function in the pipeline either said this resource was
		// explicitly ready, or explicitly not ready. We only want to
		// automatically determine readiness for desired resources where no
		// other Function has an opinion about their readiness.
		if dr.Ready != "" && dr.Ready != resource.ReadyUnspecified {
			log.V(1).Info("Ignoring desired resource that already has explicit readiness", "ready", dr.Ready)
			continue
		}

		// If this observed resource has a status condition with type: Ready,
		// status: True, we set its readiness to true.
		c := or.Resource.GetCondition(xpv1.TypeReady)
		if c.Status == corev1.ConditionTrue {
			log.V(1).Info("Automatically determined that composed resource is ready")
			dr.Ready = resource.ReadyTrue
		} else {
			log.V(1).Info("Composed resource is not ready")
		}
	}

	s.desiredResources = desired

	return nil
}

// GetAllDesired returns a map of all desired resources.
func (s *ServiceRuntime) GetAllDesired() map[resource.Name]*resource.DesiredComposed {
	return s.desiredResources
}

// GetDesiredComposite will return the currently desired composite.
// The only differences from the observed composite will be either in metadata or the status.
func (s *ServiceRuntime) GetDesiredComposite(obj client.Object) error {

	jsonBytes, err := s.desiredComposite.MarshalJSON()
	if err != nil {
		return err
	}

	return json.Unmarshal(jsonBytes, obj)
}

// DeleteDesiredCompososedResource removes a composite resource from the desired objects.
// If the object is existing on the cluster, it will be deleted!
func (s *ServiceRuntime) DeleteDesiredCompososedResource(name string) {
	delete(s.desiredResources, resource.Name(name))
}
