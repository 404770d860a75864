package conversation

import (
	"fmt"
	"math/rand"
)

// Sampler picks an index in [0, n). Production code uses the math/rand based
// default; tests inject a deterministic implementation.
type Sampler interface {
	Intn(n int) int
}

// randSampler adapts a *rand.Rand to Sampler.
type randSampler struct {
	rng *rand.Rand
}

func (r randSampler) Intn(n int) int { return r.rng.Intn(n) }

// NewRandSampler returns a Sampler backed by its own rand source.
func NewRandSampler(seed int64) Sampler {
	return randSampler{rng: rand.New(rand.NewSource(seed))}
}

// fallbackTemplates are the stock in-character replies used when the model
// cannot be reached. Each takes the celebrity name once.
var fallbackTemplates = []string{
	"作为%s，我认为这是一个很有趣的问题。让我想想该如何回答你。",
	"这是一个很好的问题！以我%s的经历来看，我需要更多时间来思考这个问题。",
	"谢谢你的提问！作为%s，我很乐意与你分享我的想法，请稍后再试。",
}

// FallbackReply formats one of the stock replies for the given celebrity,
// chosen by the sampler.
func FallbackReply(sampler Sampler, name string) string {
	tmpl := fallbackTemplates[sampler.Intn(len(fallbackTemplates))]
	return fmt.Sprintf(tmpl, name)
}

// FallbackCount reports how many stock replies exist.
func FallbackCount() int { return len(fallbackTemplates) }
