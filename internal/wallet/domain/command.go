package domain

// Command es la intención en vuelo sobre una wallet. Es un set cerrado y
// sellado: los handlers hacen dispatch exhaustivo y cualquier tipo fuera del
// set es ErrUnknownCommand. Un command nunca se persiste; o produce
// exactamente un evento o falla.
type Command interface {
	AggregateID() string
	isCommand()
}

type CreateWallet struct {
	WalletID string
}

func (c CreateWallet) AggregateID() string { return c.WalletID }
func (CreateWallet) isCommand()            {}

type CreditWallet struct {
	WalletID string
	Amount   int64
}

func (c CreditWallet) AggregateID() string { return c.WalletID }
func (CreditWallet) isCommand()            {}

type DebitWallet struct {
	WalletID string
	Amount   int64
}

func (c DebitWallet) AggregateID() string { return c.WalletID }
func (DebitWallet) isCommand()            {}
