package utils

import "fmt"

// PartitionMap splits a contiguous index range [0,MaxIndex) into
// ParallelDegree buckets with a maximum imbalance of one item. It is used
// both for dof row ownership and as the fallback element decomposition.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	var (
		Npart            = pm.MaxIndex / pm.ParallelDegree
		startAdd, endAdd int
		remainder        = pm.MaxIndex % pm.ParallelDegree
	)
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (lo, hi int) {
	lo, hi = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bucketNum int) (size int) {
	lo, hi := pm.GetBucketRange(bucketNum)
	size = hi - lo
	return
}

// GetBucket locates the bucket owning global index i.
func (pm *PartitionMap) GetBucket(i int) (bucketNum int) {
	// Initial guess, then walk
	bucketNum = int(float64(pm.ParallelDegree*i) / float64(pm.MaxIndex))
	for !(pm.Partitions[bucketNum][0] <= i && pm.Partitions[bucketNum][1] > i) {
		if pm.Partitions[bucketNum][0] > i {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			panic(fmt.Errorf("index %d out of range, MaxIndex = %d", i, pm.MaxIndex))
		}
	}
	return
}

// MailBox implements rank-to-rank message queues on channels. The usage
// pattern is: for each message {Post}; Deliver; barrier; Receive.
type MailBox[T any] struct {
	NP           int
	MessageChans []chan []T      // One per rank
	PostMsgQs    []map[int][]T   // One per rank, key is target rank
	ReceiveMsgQs [][]T           // One per rank
}

func NewMailBox[T any](NP int) (mb *MailBox[T]) {
	mb = &MailBox[T]{
		NP:           NP,
		MessageChans: make([]chan []T, NP),
		PostMsgQs:    make([]map[int][]T, NP),
		ReceiveMsgQs: make([][]T, NP),
	}
	for n := 0; n < NP; n++ {
		mb.MessageChans[n] = make(chan []T, NP) // Worst case is all-to-all
		mb.PostMsgQs[n] = make(map[int][]T)
	}
	return
}

func (mb *MailBox[T]) PostMessage(myRank, targetRank int, msg T) {
	if targetRank < 0 || targetRank > mb.NP-1 {
		panic(fmt.Sprintf("target rank %d out of bounds", targetRank))
	}
	mb.PostMsgQs[myRank][targetRank] = append(mb.PostMsgQs[myRank][targetRank], msg)
}

func (mb *MailBox[T]) DeliverMyMessages(myRank int) {
	// Must be called in myRank before receivers can read
	for targetRank, q := range mb.PostMsgQs[myRank] {
		if len(q) != 0 {
			mb.MessageChans[targetRank] <- q
		}
		delete(mb.PostMsgQs[myRank], targetRank)
	}
}

// ReceiveMyMessages drains this rank's channel. Callers must barrier
// between DeliverMyMessages and ReceiveMyMessages so that all posts for
// this exchange round have landed.
func (mb *MailBox[T]) ReceiveMyMessages(myRank int) (msgs []T) {
	for {
		select {
		case q := <-mb.MessageChans[myRank]:
			mb.ReceiveMsgQs[myRank] = append(mb.ReceiveMsgQs[myRank], q...)
		default:
			msgs = mb.ReceiveMsgQs[myRank]
			mb.ReceiveMsgQs[myRank] = nil
			return
		}
	}
}
