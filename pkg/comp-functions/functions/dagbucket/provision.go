package dagbucket

import (
	"context"
	"errors"
	"fmt"

	"github.com/crossplane/crossplane-runtime/pkg/meta"
	xfnproto "github.com/crossplane/function-sdk-go/proto/v1"
	dagsv1 "github.com/vshn/dagbucket/apis/dags/v1"
	s3v1beta1 "github.com/vshn/dagbucket/apis/s3/v1beta1"
	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
	"github.com/vshn/dagbucket/pkg/stack"
	"github.com/vshn/dagbucket/pkg/synth"
)

// ProvisionStack declares the DAG bucket and the deployment of the local
// assets into it.
// The deployment is postponed until the name of the bucket is known.
func ProvisionStack(_ context.Context, comp *dagsv1.XDagBucket, svc *runtime.ServiceRuntime) *xfnproto.Result {

	err := svc.GetObservedComposite(comp)
	if err != nil {
		return runtime.NewFatalResult(fmt.Errorf("cannot get composite: %w", err))
	}

	s := stack.NewS3Stack(comp.GetName(), stack.Config{
		BucketName: svc.Config.Data["bucketName"],
		AssetPath:  svc.Config.Data["assetPath"],
	})
	opts := getOptions(comp, svc)

	obs, err := getObserved(svc)
	if err != nil {
		return runtime.NewFatalResult(fmt.Errorf("cannot get observed bucket: %w", err))
	}

	for _, res := range synth.BucketResources(s.Bucket(), opts, obs) {
		err = svc.SetDesiredComposedResourceWithName(res.Object, res.Name)
		if err != nil {
			return runtime.NewFatalResult(fmt.Errorf("cannot add %s: %w", res.Name, err))
		}
	}

	files, err := s.Deployment().Files(svc.Fs)
	if err != nil {
		return runtime.NewFatalResult(fmt.Errorf("cannot read assets: %w", err))
	}
	hash := stack.Hash(files)

	svc.Log.Info("Rendering deployment", "files", len(files), "hash", hash,
		"composition", comp.Spec.CompositionReference.Name, "composedResources", len(comp.Spec.ResourceRefs))

	var result *xfnproto.Result
	err = addDeployment(svc, comp, s.Deployment(), files, opts, obs)
	if errors.Is(err, synth.ErrBucketUnresolved) {
		result = runtime.NewWarningResult("bucket name is not known yet, postponing deployment of the assets")
	} else if err != nil {
		return runtime.NewFatalResult(fmt.Errorf("cannot add deployment: %w", err))
	}

	bucketName, _ := synth.BucketName(s.Bucket(), obs)
	bucketARN, _ := synth.BucketARN(s.Bucket(), opts, obs)

	comp.Status.BucketName = bucketName
	comp.Status.BucketArn = bucketARN
	comp.Status.AssetHash = hash
	comp.Status.DeployedFiles = stack.Keys(files)
	err = svc.SetDesiredCompositeStatus(comp)
	if err != nil {
		return runtime.NewFatalResult(fmt.Errorf("cannot set composite status: %w", err))
	}

	if bucketName != "" {
		svc.SetConnectionDetail("BUCKET_NAME", []byte(bucketName))
		svc.SetConnectionDetail("BUCKET_ARN", []byte(bucketARN))
	}
	svc.SetConnectionDetail("AWS_REGION", []byte(opts.Region))

	return result
}

// addDeployment wraps the deployment objects into provider-kubernetes Objects.
// The resource names contain the asset hash, so a changed set of files
// replaces the previous sync instead of mutating it.
func addDeployment(svc *runtime.ServiceRuntime, comp *dagsv1.XDagBucket, d *stack.DeploymentSpec, files []stack.AssetFile, opts synth.Options, obs synth.Observed) error {
	res, err := synth.DeploymentResources(d, files, opts, obs)
	if err != nil {
		return err
	}

	suffix := stack.Hash(files)[:10]
	for _, r := range res {
		kubeOpts := []runtime.KubeOption{runtime.KubeOptionDeletionPolicy(r.DeletionPolicy)}
		if r.CelQuery != "" {
			kubeOpts = append(kubeOpts, runtime.KubeOptionCelReadiness(r.CelQuery))
		}

		resName := r.Name + "-" + suffix
		err = svc.SetDesiredKubeObjectWithName(r.Object, comp.GetName()+"-"+resName, resName, kubeOpts...)
		if err != nil {
			return fmt.Errorf("cannot add %s: %w", r.Name, err)
		}
	}
	return nil
}

func getOptions(comp *dagsv1.XDagBucket, svc *runtime.ServiceRuntime) synth.Options {
	opts := synth.Options{
		Prefix:            comp.GetName(),
		Region:            comp.Spec.Parameters.Region,
		Partition:         svc.Config.Data["partition"],
		ProviderConfig:    comp.Spec.Parameters.ProviderConfigRef,
		Namespace:         svc.Config.Data["syncNamespace"],
		SyncImage:         svc.Config.Data["syncImage"],
		CredentialsSecret: svc.Config.Data["credentialsSecret"],
		ServiceAccount:    svc.Config.Data["serviceAccount"],
	}
	if opts.Region == "" {
		opts.Region = svc.Config.Data["region"]
	}
	if opts.ProviderConfig == "" {
		opts.ProviderConfig = svc.Config.Data["providerConfig"]
	}
	return opts.WithDefaults()
}

// getObserved reads the engine assigned name and ARN of the bucket.
func getObserved(svc *runtime.ServiceRuntime) (synth.Observed, error) {
	bucket := &s3v1beta1.Bucket{}
	err := svc.GetObservedComposedResource(bucket, synth.BucketResName)
	if errors.Is(err, runtime.ErrNotFound) {
		return synth.Observed{}, nil
	}
	if err != nil {
		return synth.Observed{}, err
	}

	obs := synth.Observed{
		BucketName: meta.GetExternalName(bucket),
	}
	if obs.BucketName == "" && bucket.Status.AtProvider.ID != nil {
		obs.BucketName = *bucket.Status.AtProvider.ID
	}
	if bucket.Status.AtProvider.Arn != nil {
		obs.BucketARN = *bucket.Status.AtProvider.Arn
	}
	return obs, nil
}
