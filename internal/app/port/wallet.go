package port

import "aave_pnl/internal/domain/entity"

// WalletSource lists the wallets a batch run reports on.
type WalletSource interface {
	Wallets() ([]entity.Wallet, error)
}
