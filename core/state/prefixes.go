package state

// Raw key prefixes for every state namespace. Keys are keccak-hashed before
// hitting the database so record layouts can change without colliding.
var (
	grantRecordPrefix = []byte("grant-record:")
	grantCounterKey   = []byte("grant-counter")

	grantOwnerPrefix = []byte("grant-owner:")
	ownedCountPrefix = []byte("owned-count:")
	ownedIndexPrefix = []byte("owned-index:")
	ownedPosPrefix   = []byte("owned-pos:")
	approvalPrefix   = []byte("grant-approval:")
	operatorPrefix   = []byte("grant-operator:")

	adminKey        = []byte("engine-admin")
	adminNomineeKey = []byte("engine-admin-nominee")

	tokenBalancePrefix   = []byte("token-balance:")
	tokenAllowancePrefix = []byte("token-allowance:")
)
