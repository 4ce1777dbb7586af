package subgraph

// RawTransaction is the transaction an indexed event belongs to.
type RawTransaction struct {
	Timestamp int64  `json:"timestamp"`
	Hash      string `json:"hash"`
}

// RawClaimAction is a claimActions record as the indexer returns it. The
// market, token, amount and price arrays are parallel. Addresses are
// lowercase and amounts are decimal strings.
type RawClaimAction struct {
	ID              string         `json:"id"`
	EventName       string         `json:"eventName"`
	Account         string         `json:"account"`
	MarketAddresses []string       `json:"marketAddresses"`
	TokenAddresses  []string       `json:"tokenAddresses"`
	Amounts         []string       `json:"amounts"`
	TokenPrices     []string       `json:"tokenPrices"`
	IsLongOrders    []bool         `json:"isLongOrders"`
	Transaction     RawTransaction `json:"transaction"`
}

// RawTradeAction is a tradeActions record as the indexer returns it.
// Optional numeric fields are nil when the event does not carry them.
type RawTradeAction struct {
	ID                            string         `json:"id"`
	EventName                     string         `json:"eventName"`
	Account                       string         `json:"account"`
	OrderKey                      string         `json:"orderKey"`
	OrderType                     int            `json:"orderType"`
	IsLong                        *bool          `json:"isLong"`
	MarketAddress                 *string        `json:"marketAddress"`
	SwapPath                      []string       `json:"swapPath"`
	InitialCollateralTokenAddress string         `json:"initialCollateralTokenAddress"`
	InitialCollateralDeltaAmount  *string        `json:"initialCollateralDeltaAmount"`
	SizeDeltaUsd                  *string        `json:"sizeDeltaUsd"`
	TriggerPrice                  *string        `json:"triggerPrice"`
	AcceptablePrice               *string        `json:"acceptablePrice"`
	ExecutionPrice                *string        `json:"executionPrice"`
	MinOutputAmount               *string        `json:"minOutputAmount"`
	ExecutionAmountOut            *string        `json:"executionAmountOut"`
	Reason                        *string        `json:"reason"`
	Transaction                   RawTransaction `json:"transaction"`
}

const claimActionFields = `
    id
    account
    eventName
    marketAddresses
    tokenAddresses
    amounts
    tokenPrices
    isLongOrders
    transaction {
        timestamp
        hash
    }`

const tradeActionFields = `
    id
    eventName
    account
    orderKey
    orderType
    isLong
    marketAddress
    swapPath
    initialCollateralTokenAddress
    initialCollateralDeltaAmount
    sizeDeltaUsd
    triggerPrice
    acceptablePrice
    executionPrice
    minOutputAmount
    executionAmountOut
    reason
    transaction {
        timestamp
        hash
    }`
