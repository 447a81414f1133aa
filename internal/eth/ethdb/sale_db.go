package ethdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/6529-Collections/nftsales/internal/db"
)

type Sale struct {
	Chain           string
	Marketplace     string
	TxHash          string
	LogIndex        uint64
	BlockNumber     uint64
	ContractAddress sql.NullString
	TokenID         sql.NullString
	Buyer           sql.NullString
	Seller          sql.NullString
	Price           string
	EventSignatures string
}

type SaleDb interface {
	// StoreSale reports false when the sale was already stored.
	StoreSale(ctx context.Context, tx *sql.Tx, sale Sale) (bool, error)
	GetSale(ctx context.Context, rq db.QueryRunner, chain, txHash string, logIndex uint64) (*Sale, error)
}

func NewSaleDb() SaleDb {
	return &SaleDbImpl{}
}

type SaleDbImpl struct{}

const allSalesQuery = `
	SELECT chain, marketplace, tx_hash, log_index, block_number, contract_address,
		token_id, buyer, seller, price, event_signatures
	FROM sales
`

func (s *SaleDbImpl) StoreSale(ctx context.Context, tx *sql.Tx, sale Sale) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO sales (
			chain, marketplace, tx_hash, log_index, block_number, contract_address,
			token_id, buyer, seller, price, event_signatures
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.Chain, sale.Marketplace, sale.TxHash, sale.LogIndex, sale.BlockNumber, sale.ContractAddress,
		sale.TokenID, sale.Buyer, sale.Seller, sale.Price, sale.EventSignatures)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SaleDbImpl) GetSale(ctx context.Context, rq db.QueryRunner, chain, txHash string, logIndex uint64) (*Sale, error) {
	row := rq.QueryRowContext(ctx, allSalesQuery+`WHERE chain = ? AND tx_hash = ? AND log_index = ?`,
		chain, txHash, logIndex)
	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sale, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*Sale, error) {
	var sale Sale
	err := row.Scan(
		&sale.Chain, &sale.Marketplace, &sale.TxHash, &sale.LogIndex, &sale.BlockNumber,
		&sale.ContractAddress, &sale.TokenID, &sale.Buyer, &sale.Seller, &sale.Price, &sale.EventSignatures,
	)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}
