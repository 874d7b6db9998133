package logtail

import "github.com/forgehq/forge/internal/usage"

func apiCallForTest(inputTokens int) usage.ApiCall {
	return usage.ApiCall{InputTokens: int64(inputTokens)}
}
