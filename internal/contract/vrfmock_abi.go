package contract

// CoordinatorMockName is the registry name of the VRF coordinator mock.
const CoordinatorMockName = "VRFCoordinatorV2Mock"

func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          CoordinatorMockName,
		Name:        "VRF Coordinator V2 (mock)",
		Description: "Local randomness coordinator: subscriptions, consumers and manual fulfillment.",
		ABI:         coordinatorMockABI,
	})
}

var coordinatorMockABI = []ABIEntry{
	{
		Type: "constructor", StateMutability: "nonpayable",
		Inputs: []ABIParam{
			{Name: "_baseFee", Type: "uint96"},
			{Name: "_gasPriceLink", Type: "uint96"},
		},
	},
	{Name: "InvalidSubscription", Type: "error", Inputs: []ABIParam{}},
	{Name: "InsufficientBalance", Type: "error", Inputs: []ABIParam{}},
	{Name: "InvalidConsumer", Type: "error", Inputs: []ABIParam{}},
	{Name: "TooManyConsumers", Type: "error", Inputs: []ABIParam{}},
	{Name: "InvalidRandomWords", Type: "error", Inputs: []ABIParam{}},
	{
		Name: "SubscriptionCreated", Type: "event",
		Inputs: []ABIParam{
			{Name: "subId", Type: "uint64", Indexed: true},
			{Name: "owner", Type: "address"},
		},
	},
	{
		Name: "SubscriptionFunded", Type: "event",
		Inputs: []ABIParam{
			{Name: "subId", Type: "uint64", Indexed: true},
			{Name: "oldBalance", Type: "uint256"},
			{Name: "newBalance", Type: "uint256"},
		},
	},
	{
		Name: "ConsumerAdded", Type: "event",
		Inputs: []ABIParam{
			{Name: "subId", Type: "uint64", Indexed: true},
			{Name: "consumer", Type: "address"},
		},
	},
	{
		Name: "RandomWordsRequested", Type: "event",
		Inputs: []ABIParam{
			{Name: "keyHash", Type: "bytes32", Indexed: true},
			{Name: "requestId", Type: "uint256"},
			{Name: "preSeed", Type: "uint256"},
			{Name: "subId", Type: "uint64", Indexed: true},
			{Name: "minimumRequestConfirmations", Type: "uint16"},
			{Name: "callbackGasLimit", Type: "uint32"},
			{Name: "numWords", Type: "uint32"},
			{Name: "sender", Type: "address", Indexed: true},
		},
	},
	{
		Name: "RandomWordsFulfilled", Type: "event",
		Inputs: []ABIParam{
			{Name: "requestId", Type: "uint256", Indexed: true},
			{Name: "outputSeed", Type: "uint256"},
			{Name: "payment", Type: "uint96"},
			{Name: "success", Type: "bool"},
		},
	},
	{
		Name: "createSubscription", Type: "function",
		Inputs:          []ABIParam{},
		Outputs:         []ABIParam{{Name: "_subId", Type: "uint64"}},
		StateMutability: "nonpayable",
	},
	{
		Name: "fundSubscription", Type: "function",
		Inputs: []ABIParam{
			{Name: "_subId", Type: "uint64"},
			{Name: "_amount", Type: "uint96"},
		},
		StateMutability: "nonpayable",
	},
	{
		Name: "addConsumer", Type: "function",
		Inputs: []ABIParam{
			{Name: "_subId", Type: "uint64"},
			{Name: "_consumer", Type: "address"},
		},
		StateMutability: "nonpayable",
	},
	{
		Name: "removeConsumer", Type: "function",
		Inputs: []ABIParam{
			{Name: "_subId", Type: "uint64"},
			{Name: "_consumer", Type: "address"},
		},
		StateMutability: "nonpayable",
	},
	{
		Name: "requestRandomWords", Type: "function",
		Inputs: []ABIParam{
			{Name: "_keyHash", Type: "bytes32"},
			{Name: "_subId", Type: "uint64"},
			{Name: "_minimumRequestConfirmations", Type: "uint16"},
			{Name: "_callbackGasLimit", Type: "uint32"},
			{Name: "_numWords", Type: "uint32"},
		},
		Outputs:         []ABIParam{{Name: "", Type: "uint256"}},
		StateMutability: "nonpayable",
	},
	{
		Name: "fulfillRandomWords", Type: "function",
		Inputs: []ABIParam{
			{Name: "_requestId", Type: "uint256"},
			{Name: "_consumer", Type: "address"},
		},
		StateMutability: "nonpayable",
	},
	{
		Name: "fulfillRandomWordsWithOverride", Type: "function",
		Inputs: []ABIParam{
			{Name: "_requestId", Type: "uint256"},
			{Name: "_consumer", Type: "address"},
			{Name: "_words", Type: "uint256[]"},
		},
		StateMutability: "nonpayable",
	},
	{
		Name: "getSubscription", Type: "function",
		Inputs: []ABIParam{{Name: "_subId", Type: "uint64"}},
		Outputs: []ABIParam{
			{Name: "balance", Type: "uint96"},
			{Name: "reqCount", Type: "uint64"},
			{Name: "owner", Type: "address"},
			{Name: "consumers", Type: "address[]"},
		},
		StateMutability: "view",
	},
}
