package escrow

// WrapperABI is the ABI of the per-user escrow wrapper contract.
const WrapperABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "escrow", "type": "address"},
			{"internalType": "address", "name": "usdc", "type": "address"},
			{"internalType": "address", "name": "owner", "type": "address"}
		],
		"stateMutability": "nonpayable",
		"type": "constructor"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "depositId", "type": "uint256"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "address", "name": "verifier", "type": "address"},
			{"internalType": "bytes32", "name": "fiatCurrency", "type": "bytes32"},
			{"internalType": "bytes", "name": "gatingServiceSignature", "type": "bytes"}
		],
		"name": "signalIntent",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "bytes32", "name": "intentHash", "type": "bytes32"},
			{"internalType": "bytes", "name": "paymentProof", "type": "bytes"},
			{
				"components": [
					{"internalType": "address[]", "name": "verifiers", "type": "address[]"},
					{
						"components": [
							{"internalType": "address", "name": "intentGatingService", "type": "address"},
							{"internalType": "bytes32", "name": "payeeDetails", "type": "bytes32"},
							{"internalType": "bytes", "name": "data", "type": "bytes"}
						],
						"internalType": "struct IEscrow.DepositVerifierData[]",
						"name": "data",
						"type": "tuple[]"
					},
					{
						"components": [
							{"internalType": "bytes32", "name": "code", "type": "bytes32"},
							{"internalType": "uint256", "name": "conversionRate", "type": "uint256"}
						],
						"internalType": "struct IEscrow.Currency[][]",
						"name": "currencies",
						"type": "tuple[][]"
					}
				],
				"internalType": "struct IWrapper.OfframpIntent",
				"name": "offrampIntent",
				"type": "tuple"
			}
		],
		"name": "fulfillAndOfframp",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "bytes32", "name": "intentHash", "type": "bytes32"}
		],
		"name": "cancelIntent",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
			{"indexed": true, "internalType": "uint256", "name": "depositId", "type": "uint256"},
			{"indexed": true, "internalType": "bytes32", "name": "intentHash", "type": "bytes32"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "IntentSignaled",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "uint256", "name": "depositId", "type": "uint256"},
			{"indexed": true, "internalType": "address", "name": "depositor", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "DepositReceived",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "intentHash", "type": "bytes32"}
		],
		"name": "IntentCanceled",
		"type": "event"
	}
]`
