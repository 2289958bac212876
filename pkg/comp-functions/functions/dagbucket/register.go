package dagbucket

import (
	dagsv1 "github.com/vshn/dagbucket/apis/dags/v1"
	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
)

func init() {
	runtime.RegisterService("dagbucket", runtime.Service[*dagsv1.XDagBucket]{
		Steps: []runtime.Step[*dagsv1.XDagBucket]{
			{
				Name:    "provision-stack",
				Execute: ProvisionStack,
			},
		},
	})
}
