// Package locator resolves a restaurant name and address from free-form
// Reel caption text.
//
// The resolver wraps one generative-language call whose output format is a
// pair of bracketed fields. All parsing of that ad-hoc text lives here:
// the flow engine only ever sees the typed models.LocationResult, and any
// parse or service failure collapses to "not found". The retry loop in the
// engine is the sole recovery mechanism.
package locator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ReelBites/ReelBites/internal/genai"
	"github.com/ReelBites/ReelBites/internal/models"
)

// notFoundSentinel is the bare token the model emits when no store name
// can be identified.
const notFoundSentinel = "NO_STORE_FOUND"

const locationPrompt = `You are a professional restaurant information extractor.
Your task is to extract the **Restaurant Name** and **Address** from the provided text.

**Extraction Rules:**
1. Identify the specific name of the restaurant, cafe, or food stall.
2. Identify the address or general location (e.g., city, district, street) if mentioned.
3. If the text contains a valid store name, output using the EXACT format below.
4. If NO store name is found, output exactly: NO_STORE_FOUND

**Output Format:**
【Name】: <Store Name Here>
【Address】: <Address Here (write "Unknown" if not mentioned)>

**Examples:**
- Input: "今天去了台北信義區的鼎泰豐，在101裡面"
  -> Output:
  【Name】: 鼎泰豐 101店
  【Address】: 台北市信義區 (或完整地址)

- Input: "這家巷口的阿伯麵攤超好吃"
  -> Output:
  【Name】: 阿伯麵攤
  【Address】: Unknown

- Input: "教大家怎麼煮紅燒肉"
  -> Output: NO_STORE_FOUND

**Constraint:**
Do NOT output extra explanations. Follow the format strictly.

Below is the text:
%s`

var (
	nameRe = regexp.MustCompile(`【Name】\s*[:：]\s*(.+)`)
	addrRe = regexp.MustCompile(`【Address】\s*[:：]\s*(.+)`)
)

// Resolver turns caption text into a typed location result.
type Resolver struct {
	client genai.ClientInterface
}

// New creates a Resolver on the given generative client.
func New(client genai.ClientInterface) *Resolver {
	return &Resolver{client: client}
}

// Resolve extracts a store name and best-effort address from the caption.
// It never returns an error: service failures and unparsable replies are
// indistinguishable from "not found" by contract.
func (r *Resolver) Resolve(ctx context.Context, caption string) models.LocationResult {
	slog.Debug("Resolver.Resolve: calling model", "caption_length", len(caption))
	reply, err := r.client.GenerateText(ctx, fmt.Sprintf(locationPrompt, caption))
	if err != nil {
		slog.Warn("Resolver.Resolve: model call failed, treating as not found", "error", err)
		return models.LocationResult{}
	}
	result := Parse(reply)
	slog.Debug("Resolver.Resolve: parsed", "found", result.Found, "store", result.StoreName)
	return result
}

// Parse extracts the bracketed fields from a model reply. Exported for
// tests and for replaying stored replies.
func Parse(reply string) models.LocationResult {
	if strings.Contains(reply, notFoundSentinel) {
		return models.LocationResult{}
	}

	nameMatch := nameRe.FindStringSubmatch(reply)
	if nameMatch == nil {
		return models.LocationResult{}
	}
	name := strings.TrimSpace(nameMatch[1])
	if name == "" {
		return models.LocationResult{}
	}

	address := ""
	if addrMatch := addrRe.FindStringSubmatch(reply); addrMatch != nil {
		address = strings.TrimSpace(addrMatch[1])
		if strings.EqualFold(address, "unknown") {
			address = ""
		}
	}

	return models.LocationResult{Found: true, StoreName: name, Address: address}
}
