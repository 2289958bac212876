/*

Client is just for debugging purposes, it sends the same request as crossplane would send

*/

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	fnv1 "github.com/crossplane/function-sdk-go/proto/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"sigs.k8s.io/yaml"
)

func main() {
	address := flag.String("address", "localhost:9443", "address of the function server, started with --insecure")
	// reuse the same requests as we use in tests
	file := flag.String("file", "../functions/dagbucket/01_named.yaml", "request to send")
	flag.Parse()

	b, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal(err)
	}
	js, err := yaml.YAMLToJSON(b)
	if err != nil {
		log.Fatal(err)
	}
	req := &fnv1.RunFunctionRequest{}
	if err := protojson.Unmarshal(js, req); err != nil {
		log.Fatal(err)
	}

	conn, err := grpc.NewClient(*address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := fnv1.NewFunctionRunnerServiceClient(conn).RunFunction(ctx, req)
	if err != nil {
		log.Fatal(err)
	}

	out, err := protojson.Marshal(resp)
	if err != nil {
		log.Fatal(err)
	}
	y, err := yaml.JSONToYAML(out)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print(string(y))
}
