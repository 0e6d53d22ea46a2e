package store

// Quantities are TEXT holding decimal strings. Arithmetic happens in Go; the
// CHECK constraints cast to REAL only to compare.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS operators (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'OPERADOR',
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS manifests (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    file_name   TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'DRAFT',
    total_lines INTEGER NOT NULL DEFAULT 0,
    created_by  TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS pallets (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    code        TEXT NOT NULL UNIQUE,
    location    TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'OPEN',
    locked_by   TEXT,
    locked_at   TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS inventory_lines (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    pallet_code   TEXT NOT NULL REFERENCES pallets(code),
    sku           TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    qty_initial   TEXT NOT NULL DEFAULT '0',
    qty_available TEXT NOT NULL DEFAULT '0',
    updated_at    TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    UNIQUE(pallet_code, sku),
    CHECK (CAST(qty_available AS REAL) >= 0 AND CAST(qty_available AS REAL) <= CAST(qty_initial AS REAL))
);

CREATE TABLE IF NOT EXISTS demand_lines (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    manifest_id   INTEGER NOT NULL REFERENCES manifests(id),
    shipment      TEXT NOT NULL DEFAULT '',
    pallet_code   TEXT NOT NULL,
    location      TEXT NOT NULL DEFAULT '',
    sku           TEXT NOT NULL,
    barcode       TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    qty_total     TEXT NOT NULL DEFAULT '0',
    destination   TEXT NOT NULL,
    truck         TEXT NOT NULL DEFAULT '',
    qty_to_send   TEXT NOT NULL DEFAULT '0',
    qty_confirmed TEXT NOT NULL DEFAULT '0',
    status        TEXT NOT NULL DEFAULT 'PENDING',
    done_at       TEXT,
    done_by       TEXT,
    updated_at    TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    CHECK (CAST(qty_confirmed AS REAL) >= 0 AND CAST(qty_confirmed AS REAL) <= CAST(qty_to_send AS REAL))
);
CREATE INDEX IF NOT EXISTS idx_demand_pallet_sku ON demand_lines(pallet_code, sku);
CREATE INDEX IF NOT EXISTS idx_demand_barcode ON demand_lines(pallet_code, barcode);
CREATE INDEX IF NOT EXISTS idx_demand_manifest ON demand_lines(manifest_id);

CREATE TABLE IF NOT EXISTS containers (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    code          TEXT NOT NULL UNIQUE,
    manifest_id   INTEGER NOT NULL REFERENCES manifests(id),
    destination   TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'OPEN',
    type          TEXT NOT NULL DEFAULT 'NORMAL',
    created_by    TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    closed_by     TEXT,
    closed_at     TEXT,
    dispatched_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_containers_one_open
    ON containers(manifest_id, destination) WHERE status = 'OPEN' AND type = 'NORMAL';
CREATE INDEX IF NOT EXISTS idx_containers_manifest ON containers(manifest_id);

CREATE TABLE IF NOT EXISTS container_lines (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    container_id   INTEGER NOT NULL REFERENCES containers(id),
    pallet_code    TEXT NOT NULL,
    sku            TEXT NOT NULL,
    qty            TEXT NOT NULL,
    demand_line_id INTEGER REFERENCES demand_lines(id),
    created_by     TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_container_lines_container ON container_lines(container_id);

CREATE TABLE IF NOT EXISTS audit_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    type        TEXT NOT NULL,
    pallet_code TEXT NOT NULL DEFAULT '',
    sku         TEXT NOT NULL DEFAULT '',
    destination TEXT NOT NULL DEFAULT '',
    qty         TEXT,
    actor       TEXT NOT NULL DEFAULT '',
    raw_code    TEXT NOT NULL DEFAULT '',
    note        TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_audit_pallet ON audit_events(pallet_code);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at);
`
