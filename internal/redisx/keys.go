package redisx

import "time"

const (
	// Hasil saga per request: saga:result:{hash} -> JSON response lengkap
	KeySagaResult = "saga:result:%s"

	// Cache order utuh (JSON) utk GET cepat; di-drop saat status berubah
	KeyOrderCache = "order_cache:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// Replay saga harus tetap jalan walau client retry lama; tanpa expiry
	// tabel membengkak, jadi ambil window yang jauh lebih panjang dari
	// retry window client manapun.
	TTLSagaResult = 48 * time.Hour
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
