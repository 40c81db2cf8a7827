package contract

// RaffleName is the registry name of the lottery contract.
const RaffleName = "Raffle"

// Automation-compatible selectors:
//
//	checkUpkeep(bytes)     → 0x6e04ff0d
//	performUpkeep(bytes)   → 0x4585e33b
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          RaffleName,
		Name:        "Raffle (VRF v2 + Automation lottery)",
		Description: "Pay the entrance fee to enter; a keeper draws a verifiably random winner each interval.",
		ABI:         raffleABI,
	})
}

var raffleABI = []ABIEntry{
	{
		Type: "constructor", StateMutability: "nonpayable",
		Inputs: []ABIParam{
			{Name: "vrfCoordinatorV2", Type: "address"},
			{Name: "subscriptionId", Type: "uint64"},
			{Name: "gasLane", Type: "bytes32"},
			{Name: "interval", Type: "uint256"},
			{Name: "entranceFee", Type: "uint256"},
			{Name: "callbackGasLimit", Type: "uint32"},
		},
	},
	// ── Errors ───────────────────────────────────────────────────────────────
	{Name: "Raffle__NotEnoughEntranceFee", Type: "error", Inputs: []ABIParam{}},
	{Name: "Raffle__NotOpened", Type: "error", Inputs: []ABIParam{}},
	{Name: "Raffle__TransferFailed", Type: "error", Inputs: []ABIParam{}},
	{
		Name: "Raffle__UpkeepNotNeeded", Type: "error",
		Inputs: []ABIParam{
			{Name: "currentBalance", Type: "uint256"},
			{Name: "numPlayers", Type: "uint256"},
			{Name: "raffleState", Type: "uint256"},
		},
	},
	// ── Events ───────────────────────────────────────────────────────────────
	{
		Name: "RaffleEntered", Type: "event",
		Inputs: []ABIParam{{Name: "player", Type: "address", Indexed: true}},
	},
	{
		Name: "RequestedRaffleWinner", Type: "event",
		Inputs: []ABIParam{{Name: "requestId", Type: "uint256", Indexed: true}},
	},
	{
		Name: "WinnerPicked", Type: "event",
		Inputs: []ABIParam{{Name: "winner", Type: "address", Indexed: true}},
	},
	// ── Write ────────────────────────────────────────────────────────────────
	{Name: "enterRaffle", Type: "function", Inputs: []ABIParam{}, StateMutability: "payable"},
	{
		Name: "performUpkeep", Type: "function",
		Inputs:          []ABIParam{{Name: "", Type: "bytes"}},
		StateMutability: "nonpayable",
	},
	{
		Name: "rawFulfillRandomWords", Type: "function",
		Inputs: []ABIParam{
			{Name: "requestId", Type: "uint256"},
			{Name: "randomWords", Type: "uint256[]"},
		},
		StateMutability: "nonpayable",
	},
	// ── Read ─────────────────────────────────────────────────────────────────
	{
		Name: "checkUpkeep", Type: "function",
		Inputs: []ABIParam{{Name: "", Type: "bytes"}},
		Outputs: []ABIParam{
			{Name: "upkeepNeeded", Type: "bool"},
			{Name: "", Type: "bytes"},
		},
		StateMutability: "view",
	},
	view("getEntranceFee", nil, "uint256"),
	view("getInterval", nil, "uint256"),
	view("getRaffleState", nil, "uint8"),
	view("getPlayer", []ABIParam{{Name: "index", Type: "uint256"}}, "address"),
	view("getNumberOfPlayers", nil, "uint256"),
	view("getRecentWinner", nil, "address"),
	view("getLatestTimestamp", nil, "uint256"),
	pure("getNumWords", "uint256"),
	pure("getRequestConfirmations", "uint256"),
}

func view(name string, inputs []ABIParam, out string) ABIEntry {
	if inputs == nil {
		inputs = []ABIParam{}
	}
	return ABIEntry{
		Name: name, Type: "function",
		Inputs:          inputs,
		Outputs:         []ABIParam{{Name: "", Type: out}},
		StateMutability: "view",
	}
}

func pure(name, out string) ABIEntry {
	e := view(name, nil, out)
	e.StateMutability = "pure"
	return e
}
