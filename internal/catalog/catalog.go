package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// Catalog содержит статический список товаров магазина
// Формируется один раз при старте процесса и дальше только читается,
// поэтому синхронизация не нужна
type Catalog struct {
	products []repository.Product
	byID     map[string]repository.Product
}

// New создаёт каталог из списка товаров
func New(products []repository.Product) *Catalog {
	byID := make(map[string]repository.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Catalog{
		products: products,
		byID:     byID,
	}
}

// Default создаёт каталог с базовым ассортиментом магазина
func Default() *Catalog {
	return New(defaultProducts())
}

// Products возвращает все товары каталога
func (c *Catalog) Products() []repository.Product {
	out := make([]repository.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ProductByID возвращает товар по ID
// Второе значение false, если товара нет в каталоге
func (c *Catalog) ProductByID(id string) (repository.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// ProductsByCategory возвращает товары указанной категории
func (c *Catalog) ProductsByCategory(category repository.ProductCategory) []repository.Product {
	out := make([]repository.Product, 0)
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// ProductsByPlatform возвращает товары для указанной платформы
func (c *Catalog) ProductsByPlatform(platform repository.Platform) []repository.Product {
	out := make([]repository.Product, 0)
	for _, p := range c.products {
		if p.Platform == platform {
			out = append(out, p)
		}
	}
	return out
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// defaultProducts возвращает ассортимент витрины Freetime Maker Shop
func defaultProducts() []repository.Product {
	return []repository.Product{
		{
			ID:          "platformer_android",
			Title:       "2D Platformer",
			Description: "Classic 2D platformer game for Android",
			Price:       price("20.00"),
			Currency:    "USD",
			Category:    repository.CategoryGames,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.platformer.android.html",
			Features:    []string{"Classic gameplay", "Multiple levels", "Android optimized"},
		},
		{
			ID:          "plc_android",
			Title:       "Programming Language Clicker",
			Description: "Learn programming languages while clicking",
			Price:       price("22.00"),
			Currency:    "USD",
			Category:    repository.CategoryClickerGames,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.plc.android.html",
			Features:    []string{"Educational", "Addictive gameplay", "Learn programming"},
		},
		{
			ID:          "plc_windows",
			Title:       "Programming Language Clicker",
			Description: "Learn programming languages while clicking",
			Price:       price("22.00"),
			Currency:    "USD",
			Category:    repository.CategoryClickerGames,
			Platform:    repository.PlatformWindows,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.plc.windows.html",
			Features:    []string{"Educational", "Addictive gameplay", "Learn programming"},
		},
		{
			ID:          "plc2_android",
			Title:       "Programming Language Clicker 2.0",
			Description: "Enhanced version with more features",
			Price:       price("25.00"),
			Currency:    "USD",
			Category:    repository.CategoryClickerGames,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.plc2.android.html",
			Features:    []string{"Enhanced graphics", "More languages", "Improved gameplay"},
		},
		{
			ID:          "plcb_android",
			Title:       "PLC Bundle",
			Description: "Complete Programming Language Clicker Bundle",
			Price:       price("30.00"),
			Currency:    "USD",
			Category:    repository.CategoryBundles,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.plcb.android.html",
			Features:    []string{"All PLC versions", "Best value", "Complete collection"},
		},
		{
			ID:          "cat_clicker_android",
			Title:       "Cat Clicker",
			Description: "Adorable cat clicking game",
			Price:       price("25.00"),
			Currency:    "USD",
			Category:    repository.CategoryClickerGames,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.cat.android.html",
			Features:    []string{"Cute cats", "Relaxing gameplay", "Collect different cats"},
		},
		{
			ID:          "os_clicker_android",
			Title:       "OS Clicker",
			Description: "Operating System themed clicker",
			Price:       price("25.00"),
			Currency:    "USD",
			Category:    repository.CategoryClickerGames,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.os.android.html",
			Features:    []string{"OS themes", "Educational", "Tech focused"},
		},
		{
			ID:          "crypto_clicker_android",
			Title:       "Crypto Clicker",
			Description: "Cryptocurrency themed clicking game",
			Price:       price("25.00"),
			Currency:    "USD",
			Category:    repository.CategoryClickerGames,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.cc.android.html",
			Features:    []string{"Crypto themes", "Learn about crypto", "Trading simulation"},
		},
		{
			ID:          "clicker_bundle_android",
			Title:       "Clicker Bundle",
			Description: "All clicker games in one bundle",
			Price:       price("55.00"),
			Currency:    "USD",
			Category:    repository.CategoryBundles,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.clicker.bundle.android.html",
			Features:    []string{"All clicker games", "Huge savings", "Complete collection"},
		},
		{
			ID:          "geoweather_android",
			Title:       "GeoWeather",
			Description: "Weather and geography app",
			Price:       price("15.00"),
			Currency:    "USD",
			Category:    repository.CategoryUtilities,
			Platform:    repository.PlatformAndroid,
			PurchaseURL: "https://freetimemaker.github.io/Freetime-Maker-Shop/buy.gw.android.html",
			Features:    []string{"Weather data", "Geographic info", "Location based"},
		},
	}
}
