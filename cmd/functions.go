package cmd

import (
	"errors"
	"net/http"
	"path/filepath"

	function "github.com/crossplane/function-sdk-go"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "github.com/vshn/dagbucket/pkg/comp-functions/functions/dagbucket"
	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
	"github.com/vshn/dagbucket/pkg/stack"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

func init() {
	viper.AutomaticEnv()

	FunctionCMD.Flags().StringVar(&network, "network", "tcp", "network type")
	FunctionCMD.Flags().StringVar(&address, "address", ":9443", "set where socket should be located")
	FunctionCMD.Flags().BoolVar(&insecure, "insecure", false, "disable tls transport")
	FunctionCMD.Flags().StringVar(&tlsCertsDir, "certsdir", viper.GetString("TLS_SERVER_CERTS_DIR"), "Directory containing server certs (tls.key, tls.crt) and the CA used to verify client certificates (ca.crt) (env: TLS_SERVER_CERTS_DIR)")
	FunctionCMD.Flags().BoolVar(&proxyMode, "proxymode", false, "Enable proxy mode. If enabled the grpc calls will be forwarded to another GRPC endpoint.")
	FunctionCMD.Flags().StringVar(&metricsAddr, "metrics-addr", ":8080", "Address the metrics endpoint binds to. Empty disables it.")
	FunctionCMD.Flags().StringVar(&functionAssetPath, "asset-path", stack.DefaultAssetPath, "Directory containing the DAG files, relative to the working directory.")
}

var (
	network           string
	address           string
	insecure          bool
	tlsCertsDir       string
	proxyMode         bool
	metricsAddr       string
	functionAssetPath string
)

// FunctionCMD serves the composition functions.
var FunctionCMD = &cobra.Command{
	Use:   "functions",
	Short: "Crossplane Functions Server",
	Long:  "Run the GRPC Server for crossplane composition functions",
	RunE:  executeFunctionsServer,
}

func executeFunctionsServer(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())
	ctrl.SetLogger(log)

	defaults, err := functionDefaults(viper.GetString("BUCKET_NAME"), functionAssetPath)
	if err != nil {
		return err
	}

	manager := runtime.NewManager(log, proxyMode,
		runtime.WithDefaults(defaults),
		runtime.WithFs(afero.NewOsFs()),
	)

	if metricsAddr != "" {
		err := runtime.RegisterMetrics(metrics.Registry)
		if err != nil {
			return err
		}
		go serveMetrics(log, metricsAddr)
	}

	log.Info("Listening for grpc calls", "address", address, "network", network, "insecure", insecure, "proxy", proxyMode, "defaults", defaults)

	return function.Serve(manager,
		function.Listen(network, address),
		function.MTLSCertificates(tlsCertsDir),
		function.Insecure(insecure))

}

// functionDefaults returns the process wide function input.
// The asset path gets resolved against the working directory once.
func functionDefaults(bucketName, assetPath string) (map[string]string, error) {
	abs, err := filepath.Abs(assetPath)
	if err != nil {
		return nil, err
	}

	defaults := map[string]string{
		"assetPath": abs,
	}
	if bucketName != "" {
		defaults["bucketName"] = bucketName
	}
	return defaults, nil
}

func serveMetrics(log logr.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	log.Info("Serving metrics", "address", addr)
	err := http.ListenAndServe(addr, mux)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(err, "metrics endpoint stopped")
	}
}
