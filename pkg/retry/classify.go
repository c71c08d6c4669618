package retry

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsretry "github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/smithy-go"
)

// transientCodes - коды Glue/STS, после которых вызов имеет смысл повторить
var transientCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ConcurrentModificationException":        true,
	"InternalServiceException":               true,
	"OperationTimeoutException":              true,
	"ServiceUnavailableException":            true,
	"ResourceNotReadyException":              true,
	"RequestLimitExceeded":                   true,
	"TooManyRequestsException":               true,
	"ProvisionedThroughputExceededException": true,
}

// IsRetryableAWS - классификатор ошибок AWS SDK: троттлинг, 5xx и
// сетевые ошибки повторяются, ошибки валидации входа - нет
func IsRetryableAWS(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] {
			return true
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return true
		}
		return false
	}

	return awsretry.IsErrorRetryables(awsretry.DefaultRetryables).IsErrorRetryable(err) == aws.TrueTernary
}
