package synth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
	"github.com/vshn/dagbucket/pkg/stack"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/utils/ptr"
)

const (
	assetMountPath = "/assets"
	// maxAssetSize keeps the rendered ConfigMap below the 1MiB object limit
	// with some room for metadata.
	maxAssetSize = 900 * 1024

	jobCompleteQuery = `object.status.conditions.exists(c, c.type == "Complete" && c.status == "True")`
)

var invalidConfigMapKey = regexp.MustCompile(`[^-._a-zA-Z0-9]+`)

// DeploymentResources renders the assets into a ConfigMap and a Job that syncs
// them into the destination bucket once.
// Both object names contain the hash of the assets, so any change to the
// files results in a new sync.
func DeploymentResources(d *stack.DeploymentSpec, files []stack.AssetFile, opts Options, obs Observed) ([]KubeResource, error) {
	opts = opts.WithDefaults()

	bucketName, err := BucketName(d.Destination, obs)
	if err != nil {
		return nil, err
	}

	size := 0
	for _, f := range files {
		size += len(f.Content)
	}
	if size > maxAssetSize {
		return nil, fmt.Errorf("assets of %s are %d bytes, only %d bytes are supported", d.ID, size, maxAssetSize)
	}

	hash := stack.Hash(files)
	name := runtime.EscapeDNS1123Label(fmt.Sprintf("%s-%s-%s", opts.Prefix, d.ID, hash[:10]), 52)

	cm, items, err := assetConfigMap(name, opts.Namespace, hash, files)
	if err != nil {
		return nil, err
	}

	policy := deletionPolicy(stack.Destroy)
	if d.RetainOnDelete {
		policy = deletionPolicy(stack.Retain)
	}

	return []KubeResource{
		{
			Name:           AssetsResName,
			Object:         cm,
			DeletionPolicy: policy,
		},
		{
			Name:           SyncJobResName,
			Object:         syncJob(name, bucketName, hash, d.Prune, items, opts),
			DeletionPolicy: policy,
			CelQuery:       jobCompleteQuery,
		},
	}, nil
}

func assetConfigMap(name, namespace, hash string, files []stack.AssetFile) (*corev1.ConfigMap, []corev1.KeyToPath, error) {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{"dags.appcat.vshn.io/asset-hash": hash[:63]},
		},
		BinaryData: map[string][]byte{},
	}

	items := make([]corev1.KeyToPath, 0, len(files))
	for _, f := range files {
		key, err := configMapKey(f.Key, cm.BinaryData)
		if err != nil {
			return nil, nil, err
		}
		cm.BinaryData[key] = f.Content
		items = append(items, corev1.KeyToPath{Key: key, Path: f.Key})
	}

	return cm, items, nil
}

// configMapKey escapes a file path into a valid and unused ConfigMap key.
// Path elements starting with ".." are reserved by the kubelet for volume updates.
func configMapKey(path string, used map[string][]byte) (string, error) {
	for _, elem := range strings.Split(path, "/") {
		if strings.HasPrefix(elem, "..") {
			return "", fmt.Errorf("file %q: path elements must not start with '..'", path)
		}
	}

	key := invalidConfigMapKey.ReplaceAllString(strings.ReplaceAll(path, "/", "__"), "_")
	candidate := key
	for i := 1; ; i++ {
		if _, ok := used[candidate]; !ok {
			break
		}
		candidate = fmt.Sprintf("%s.%d", key, i)
	}

	if errs := validation.IsConfigMapKey(candidate); len(errs) > 0 {
		return "", fmt.Errorf("file %q is not a valid ConfigMap key: %s", path, strings.Join(errs, ", "))
	}
	return candidate, nil
}

func syncJob(name, bucketName, hash string, prune bool, items []corev1.KeyToPath, opts Options) *batchv1.Job {
	args := []string{
		"s3", "sync", assetMountPath + "/", "s3://" + bucketName + "/",
		"--no-progress",
	}
	if prune {
		args = append(args, "--delete")
	}

	container := corev1.Container{
		Name:  "sync",
		Image: opts.SyncImage,
		Args:  args,
		Env: []corev1.EnvVar{
			{Name: "AWS_DEFAULT_REGION", Value: opts.Region},
			{Name: "ASSET_HASH", Value: hash},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: "assets", MountPath: assetMountPath, ReadOnly: true},
		},
	}

	if opts.CredentialsSecret != "" {
		container.EnvFrom = []corev1.EnvFromSource{
			{SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: opts.CredentialsSecret},
			}},
		}
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: opts.Namespace,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.To(int32(3)),
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy:      corev1.RestartPolicyOnFailure,
					ServiceAccountName: opts.ServiceAccount,
					Containers:         []corev1.Container{container},
					Volumes: []corev1.Volume{
						{
							Name: "assets",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: name},
									Items:                items,
								},
							},
						},
					},
				},
			},
		},
	}
}
