package service

import (
	"sort"
	"strings"
)

// WalletApp представляет внешнее приложение-кошелёк, способное оплатить платёж
type WalletApp struct {
	Name           string
	PackageName    string
	SupportedCoins []string
	IconURL        string
	Installed      bool
}

// WalletDirectory определяет интерфейс справочника поддерживаемых валют и кошельков
type WalletDirectory interface {
	// SupportedCurrencies возвращает отсортированный список поддерживаемых валют
	SupportedCurrencies() []string

	// Supports возвращает true, если валюта поддерживается хотя бы одним кошельком
	Supports(currency string) bool

	// Wallets возвращает все известные приложения-кошельки
	Wallets() []WalletApp

	// WalletsForCurrency возвращает кошельки, поддерживающие валюту
	WalletsForCurrency(currency string) []WalletApp

	// WalletByPackage возвращает кошелёк по package name
	WalletByPackage(packageName string) (WalletApp, bool)
}

// StaticWalletDirectory реализует WalletDirectory на основе фиксированного списка кошельков
// Флаг Installed резолвится в момент запроса через PackageChecker
type StaticWalletDirectory struct {
	apps     []WalletApp
	packages PackageChecker
}

// NewStaticWalletDirectory создаёт справочник с базовым набором кошельков
func NewStaticWalletDirectory(packages PackageChecker) *StaticWalletDirectory {
	if packages == nil {
		packages = NoInstalledPackages{}
	}
	return &StaticWalletDirectory{
		apps:     defaultWalletApps(),
		packages: packages,
	}
}

// SupportedCurrencies возвращает отсортированное объединение монет всех кошельков
func (d *StaticWalletDirectory) SupportedCurrencies() []string {
	seen := make(map[string]struct{})
	for _, app := range d.apps {
		for _, coin := range app.SupportedCoins {
			seen[coin] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for coin := range seen {
		out = append(out, coin)
	}
	sort.Strings(out)
	return out
}

// Supports возвращает true, если валюта поддерживается хотя бы одним кошельком
func (d *StaticWalletDirectory) Supports(currency string) bool {
	currency = strings.ToUpper(currency)
	for _, app := range d.apps {
		for _, coin := range app.SupportedCoins {
			if coin == currency {
				return true
			}
		}
	}
	return false
}

// Wallets возвращает все кошельки с резолвом флага Installed
func (d *StaticWalletDirectory) Wallets() []WalletApp {
	out := make([]WalletApp, len(d.apps))
	for i, app := range d.apps {
		app.Installed = d.packages.IsInstalled(app.PackageName)
		out[i] = app
	}
	return out
}

// WalletsForCurrency возвращает кошельки, поддерживающие валюту
func (d *StaticWalletDirectory) WalletsForCurrency(currency string) []WalletApp {
	currency = strings.ToUpper(currency)
	out := make([]WalletApp, 0)
	for _, app := range d.apps {
		for _, coin := range app.SupportedCoins {
			if coin == currency {
				app.Installed = d.packages.IsInstalled(app.PackageName)
				out = append(out, app)
				break
			}
		}
	}
	return out
}

// WalletByPackage возвращает кошелёк по package name
func (d *StaticWalletDirectory) WalletByPackage(packageName string) (WalletApp, bool) {
	for _, app := range d.apps {
		if app.PackageName == packageName {
			app.Installed = d.packages.IsInstalled(app.PackageName)
			return app, true
		}
	}
	return WalletApp{}, false
}

// defaultWalletApps возвращает базовый набор внешних кошельков витрины
func defaultWalletApps() []WalletApp {
	return []WalletApp{
		{
			Name:           "Trust Wallet",
			PackageName:    "com.wallet.crypto.trustapp",
			SupportedCoins: []string{"BTC", "ETH", "LTC", "BCH", "DOGE", "SOL", "MATIC", "BNB", "TRX"},
			IconURL:        "https://trustwallet.com/assets/images/media/assets/TWT.png",
		},
		{
			Name:           "Coinbase Wallet",
			PackageName:    "org.toshi",
			SupportedCoins: []string{"BTC", "ETH", "LTC", "BCH", "SOL", "MATIC"},
			IconURL:        "https://avatars.githubusercontent.com/u/1885080",
		},
		{
			Name:           "MetaMask",
			PackageName:    "io.metamask",
			SupportedCoins: []string{"ETH", "MATIC", "BNB"},
			IconURL:        "https://metamask.io/icons/icon-512x512.png",
		},
		{
			Name:           "Exodus",
			PackageName:    "exodusmovement.exodus",
			SupportedCoins: []string{"BTC", "ETH", "LTC", "BCH", "DOGE", "SOL"},
			IconURL:        "https://www.exodus.com/brand/dark/exodus-icon.png",
		},
		{
			Name:           "Binance",
			PackageName:    "com.binance.dev",
			SupportedCoins: []string{"BTC", "ETH", "DOGE", "BNB", "TRX"},
			IconURL:        "https://public.bnbstatic.com/20190405/eb2349c3-b2f8-4a93-a286-8f86a62ea9d8.png",
		},
	}
}
