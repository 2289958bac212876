package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thediveo/enumflag/v2"
	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
	"github.com/vshn/dagbucket/pkg/stack"
	"github.com/vshn/dagbucket/pkg/synth"
	"sigs.k8s.io/yaml"
)

type outputFormat enumflag.Flag

const (
	yamlOutput outputFormat = iota
	jsonOutput
)

var outputFormats = map[outputFormat][]string{
	yamlOutput: {"yaml"},
	jsonOutput: {"json"},
}

type synthConfig struct {
	stackID    string
	bucketName string
	assetPath  string
	output     outputFormat
	opts       synth.Options
}

var synthCfg = synthConfig{
	opts: synth.DefaultOptions(),
}

// SynthCMD renders the stack without a running engine.
var SynthCMD = newSynthCMD()

func newSynthCMD() *cobra.Command {
	command := &cobra.Command{
		Use:   "synth",
		Short: "Render the stack",
		Long:  "Render the bucket and the deployment of the DAG files as Crossplane resources to stdout",
		RunE:  executeSynth,
	}

	f := command.Flags()
	f.StringVar(&synthCfg.stackID, "id", "MwaaStack", "Id of the stack.")
	f.StringVar(&synthCfg.assetPath, "asset-path", stack.DefaultAssetPath, "Directory containing the DAG files, relative to the working directory.")
	f.StringVar(&synthCfg.opts.Prefix, "prefix", synthCfg.opts.Prefix, "Prefix of all object names.")
	f.StringVar(&synthCfg.opts.Region, "region", synthCfg.opts.Region, "AWS region of the bucket.")
	f.StringVar(&synthCfg.opts.Partition, "partition", synthCfg.opts.Partition, "AWS partition of the bucket.")
	f.StringVar(&synthCfg.opts.ProviderConfig, "provider-config", synthCfg.opts.ProviderConfig, "Name of the AWS provider config.")
	f.StringVar(&synthCfg.opts.Namespace, "namespace", synthCfg.opts.Namespace, "Namespace of the sync job.")
	f.StringVar(&synthCfg.opts.SyncImage, "sync-image", synthCfg.opts.SyncImage, "Image of the sync job.")
	f.StringVar(&synthCfg.opts.CredentialsSecret, "credentials-secret", "", "Secret containing the AWS credentials of the sync job.")
	f.StringVar(&synthCfg.opts.ServiceAccount, "service-account", "", "Service account of the sync job.")
	f.VarP(
		enumflag.New(&synthCfg.output, "output", outputFormats, enumflag.EnumCaseInsensitive),
		"output", "o",
		"Output format (values: [yaml, json]).")

	return command
}

func executeSynth(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	cfg := synthCfg
	cfg.bucketName = viper.GetString("BUCKET_NAME")

	abs, err := filepath.Abs(cfg.assetPath)
	if err != nil {
		return err
	}
	cfg.assetPath = abs

	log.V(1).Info("Rendering stack", "id", cfg.stackID, "bucketName", cfg.bucketName, "assetPath", cfg.assetPath)

	return renderStack(log, cmd.OutOrStdout(), afero.NewOsFs(), cfg)
}

// renderStack writes all resources of the stack as documents to w.
func renderStack(log logr.Logger, w io.Writer, fs afero.Fs, cfg synthConfig) error {
	opts := cfg.opts.WithDefaults()

	s := stack.NewS3Stack(cfg.stackID, stack.Config{
		BucketName: cfg.bucketName,
		AssetPath:  cfg.assetPath,
	})

	// Without a name, the provider uses the object name as bucket name.
	obs := synth.Observed{}
	if !s.Bucket().HasName() {
		obs.BucketName = synth.ObjectName(opts, s.Bucket().ID)
		log.Info("No bucket name set, using the object name", "bucketName", obs.BucketName)
	}

	docs := []any{}
	for _, r := range synth.BucketResources(s.Bucket(), opts, obs) {
		docs = append(docs, r.Object)
	}

	files, err := s.Deployment().Files(fs)
	if err != nil {
		return err
	}

	kubeRes, err := synth.DeploymentResources(s.Deployment(), files, opts, obs)
	if err != nil {
		return err
	}

	suffix := stack.Hash(files)[:10]
	for _, r := range kubeRes {
		kubeOpts := []runtime.KubeOption{runtime.KubeOptionDeletionPolicy(r.DeletionPolicy)}
		if r.CelQuery != "" {
			kubeOpts = append(kubeOpts, runtime.KubeOptionCelReadiness(r.CelQuery))
		}
		obj, err := runtime.NewKubeObject(r.Object, fmt.Sprintf("%s-%s-%s", opts.Prefix, r.Name, suffix), kubeOpts...)
		if err != nil {
			return err
		}
		docs = append(docs, obj)
	}

	return writeDocuments(w, docs, cfg.output)
}

func writeDocuments(w io.Writer, docs []any, output outputFormat) error {
	for i, doc := range docs {
		u, err := runtime.ToComposed(doc)
		if err != nil {
			return err
		}

		var b []byte
		switch output {
		case jsonOutput:
			b, err = json.Marshal(u.Object)
			b = append(b, '\n')
		case yamlOutput:
			b, err = yaml.Marshal(u.Object)
			if i > 0 {
				b = append([]byte("---\n"), b...)
			}
		default:
			err = errors.New("unknown output format")
		}
		if err != nil {
			return err
		}

		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
