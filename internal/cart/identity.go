package cart

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// configKey derives the timestamp-free configuration identity of a line:
// product id, size id, sorted add-on ids, and the note text. Two lines with
// the same configuration share a config key but never a cart item id.
func configKey(productID string, size *SizeSelection, addOns []OptionSelection, note string) string {
	sizeID := ""
	if size != nil {
		sizeID = size.ID
		if sizeID == "" {
			sizeID = size.Name
		}
	}
	optionIDs := make([]string, 0, len(addOns))
	for _, opt := range addOns {
		id := opt.ID
		if id == "" {
			id = opt.Name
		}
		optionIDs = append(optionIDs, id)
	}
	sort.Strings(optionIDs)

	return strings.Join([]string{productID, sizeID, strings.Join(optionIDs, ","), note}, "|")
}

// newCartItemID extends the config key with the creation timestamp and a
// random suffix so repeated adds of one configuration stay distinct lines.
func newCartItemID(config string, now time.Time) string {
	return fmt.Sprintf("%s|%d|%s", config, now.UnixNano(), randomSuffix())
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// the timestamp component still disambiguates
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

// configKeyOf recomputes the configuration identity of an existing line.
func configKeyOf(item LineItem) string {
	return configKey(item.ProductID, item.Size, item.AddOns, item.Note)
}
