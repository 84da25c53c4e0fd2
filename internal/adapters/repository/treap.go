package repository

// Treap ordered by best score DESC, then user ID ASC.
//
// "less" means ranks earlier, so an in-order traversal yields the game's
// leaderboard from best to worst. Priorities are a mix of the user ID, which
// keeps the shape deterministic for a given set of players.

type node struct {
	user  int64
	score int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aUser) should appear before (bScore, bUser).
func less(aScore, aUser, bScore, bUser int64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aUser < bUser
}

// priority is splitmix64 of the user ID.
func priority(user int64) uint64 {
	z := uint64(user) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, user, score int64) *node {
	if n == nil {
		return &node{user: user, score: score, prio: priority(user), size: 1}
	}
	if less(score, user, n.score, n.user) {
		n.left = insert(n.left, user, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, user, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, user, score int64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && user == n.user {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, user, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, user, score)
		}
	} else if less(score, user, n.score, n.user) {
		n.left = deleteNode(n.left, user, score)
	} else {
		n.right = deleteNode(n.right, user, score)
	}
	fix(n)
	return n
}

// collectTop appends up to limit user IDs in rank order.
func collectTop(n *node, limit int, out *[]int64) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.user)
	}
	if len(*out) < limit {
		collectTop(n.right, limit, out)
	}
}
