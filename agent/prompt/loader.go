package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/shopper.txt
var shopperRaw string

// Shopper returns the trimmed shopper system prompt. The embed is
// compile-time, so this is safe to call concurrently.
func Shopper() string {
	return strings.TrimSpace(shopperRaw)
}

// ShopperWithCatalog splices the live product list into the prompt so the
// model always sees the catalog it is selling from.
func ShopperWithCatalog(names []string) string {
	return strings.ReplaceAll(Shopper(), "{available_products}", strings.Join(names, ", "))
}
