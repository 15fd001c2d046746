package solana

// Transaction represents a Solana transaction as returned by getTransaction
// or carried in a transactionNotification data frame.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds), 0 if unknown
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err             interface{}
	LogMessages     []string
	LoadedAddresses *LoadedAddresses // present for v0 transactions
}

// LoadedAddresses holds account keys resolved through address lookup tables.
// Writable addresses precede readonly addresses in the combined key list.
type LoadedAddresses struct {
	Writable []string
	Readonly []string
}

// TransactionMessage contains the transaction message.
type TransactionMessage struct {
	AccountKeys         []string
	Instructions        []MessageInstruction
	AddressTableLookups []AddressTableLookup
}

// MessageInstruction is one instruction as encoded in the message:
// a program index into the account key list, account index references
// into the same list, and a base58-encoded data payload.
type MessageInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string
}

// AddressTableLookup references an address lookup table used by a v0 message.
type AddressTableLookup struct {
	AccountKey      string
	WritableIndexes []int
	ReadonlyIndexes []int
}

// StreamMessage is one data frame delivered by a stream subscription.
// Log subscriptions carry Logs; transaction subscriptions carry Transaction;
// other feeds (order book streams) carry the raw payload in Raw.
type StreamMessage struct {
	Signature   string
	Slot        int64
	Logs        []string
	Err         interface{} // non-nil for failed transactions
	Transaction *Transaction
	Raw         []byte
}
