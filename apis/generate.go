//go:build generate

// Generate deepcopy methodsets and CRD manifests

//go:generate go run -tags generate sigs.k8s.io/controller-tools/cmd/controller-gen object paths=./dags/...
//go:generate go run -tags generate sigs.k8s.io/controller-tools/cmd/controller-gen crd:crdVersions=v1 paths=./dags/... output:crd:artifacts:config=../package/crds

package apis
