package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBStore persists agents to Postgres alongside the file-based store,
// per spec §3's "Agents live in both a YAML directory and a Postgres
// agents table" data model.
type DBStore struct {
	pool    *pgxpool.Pool
	decrypt decryptFunc
	encrypt func(string) (string, error)
}

func NewDBStore(pool *pgxpool.Pool, decrypt func(blob string) (string, error), encrypt func(plain string) (string, error)) *DBStore {
	return &DBStore{pool: pool, decrypt: decrypt, encrypt: encrypt}
}

func (s *DBStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS agents (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  webhook_name TEXT UNIQUE,
  model TEXT NOT NULL DEFAULT '',
  credential TEXT NOT NULL DEFAULT '',
  system_prompt TEXT NOT NULL DEFAULT '',
  input_schema JSONB,
  output_schema JSONB,
  rag JSONB,
  data_analysis JSONB,
  tools JSONB,
  webhook_url TEXT NOT NULL DEFAULT '',
  group_id TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	return err
}

// LoadAll fetches every agent row, decrypting the credential field and any
// enc:-tagged leaf nested inside tools/schemas.
func (s *DBStore) LoadAll(ctx context.Context) ([]*Agent, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, webhook_name, model, credential, system_prompt,
       input_schema, output_schema, rag, data_analysis, tools, webhook_url, group_id
FROM agents`)
	if err != nil {
		return nil, fmt.Errorf("registry: query agents: %w", err)
	}
	defer rows.Close()

	var out []*Agent
	for rows.Next() {
		var (
			a                                                       Agent
			webhookName, credential, groupID                        *string
			inputSchema, outputSchema, rag, dataAnalysis, toolsJSON []byte
		)
		if err := rows.Scan(&a.ID, &a.Name, &webhookName, &a.Model, &credential, &a.SystemPrompt,
			&inputSchema, &outputSchema, &rag, &dataAnalysis, &toolsJSON, &a.WebhookURL, &groupID); err != nil {
			return nil, fmt.Errorf("registry: scan agent row: %w", err)
		}
		if webhookName != nil {
			a.WebhookName = *webhookName
		}
		if groupID != nil {
			a.GroupID = *groupID
		}
		if credential != nil {
			plain, err := s.decryptIfTagged(*credential)
			if err != nil {
				return nil, fmt.Errorf("registry: decrypt credential for agent %q: %w", a.ID, err)
			}
			a.Credential = plain
		}
		if err := s.decodeJSONField(inputSchema, &a.InputSchema); err != nil {
			return nil, err
		}
		if err := s.decodeJSONField(outputSchema, &a.OutputSchema); err != nil {
			return nil, err
		}
		if len(rag) > 0 {
			if err := json.Unmarshal(rag, &a.RAG); err != nil {
				return nil, fmt.Errorf("registry: decode rag binding for agent %q: %w", a.ID, err)
			}
		}
		if len(dataAnalysis) > 0 {
			if err := json.Unmarshal(dataAnalysis, &a.DataAnalysis); err != nil {
				return nil, fmt.Errorf("registry: decode data_analysis binding for agent %q: %w", a.ID, err)
			}
		}
		if len(toolsJSON) > 0 {
			var generic any
			if err := json.Unmarshal(toolsJSON, &generic); err != nil {
				return nil, fmt.Errorf("registry: decode tools for agent %q: %w", a.ID, err)
			}
			decrypted, err := decryptTree(generic, s.decrypt)
			if err != nil {
				return nil, fmt.Errorf("registry: decrypt tools for agent %q: %w", a.ID, err)
			}
			reencoded, err := json.Marshal(decrypted)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(reencoded, &a.Tools); err != nil {
				return nil, fmt.Errorf("registry: remarshal tools for agent %q: %w", a.ID, err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *DBStore) decodeJSONField(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	decrypted, err := decryptTree(generic, s.decrypt)
	if err != nil {
		return err
	}
	m, ok := decrypted.(map[string]any)
	if !ok {
		return fmt.Errorf("registry: expected JSON object, got %T", decrypted)
	}
	*dst = m
	return nil
}

func (s *DBStore) decryptIfTagged(v string) (string, error) {
	rest, ok := cutPrefix(v, encPrefix)
	if !ok {
		return v, nil
	}
	return s.decrypt(rest)
}

// Save upserts one agent, re-encrypting its credential before persisting.
func (s *DBStore) Save(ctx context.Context, a *Agent) error {
	credential := ""
	if a.Credential != "" {
		tagged, err := encryptLeaf(a.Credential, s.encrypt)
		if err != nil {
			return fmt.Errorf("registry: encrypt credential for agent %q: %w", a.ID, err)
		}
		credential = tagged
	}

	inputSchema, _ := json.Marshal(a.InputSchema)
	outputSchema, _ := json.Marshal(a.OutputSchema)
	rag, _ := json.Marshal(a.RAG)
	dataAnalysis, _ := json.Marshal(a.DataAnalysis)
	tools, _ := json.Marshal(a.Tools)

	var webhookName, groupID any
	if a.WebhookName != "" {
		webhookName = a.WebhookName
	}
	if a.GroupID != "" {
		groupID = a.GroupID
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO agents(id, name, webhook_name, model, credential, system_prompt,
  input_schema, output_schema, rag, data_analysis, tools, webhook_url, group_id, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
ON CONFLICT (id) DO UPDATE SET
  name=EXCLUDED.name, webhook_name=EXCLUDED.webhook_name, model=EXCLUDED.model,
  credential=EXCLUDED.credential, system_prompt=EXCLUDED.system_prompt,
  input_schema=EXCLUDED.input_schema, output_schema=EXCLUDED.output_schema,
  rag=EXCLUDED.rag, data_analysis=EXCLUDED.data_analysis, tools=EXCLUDED.tools,
  webhook_url=EXCLUDED.webhook_url, group_id=EXCLUDED.group_id, updated_at=now()
`, a.ID, a.Name, webhookName, a.Model, credential, a.SystemPrompt,
		inputSchema, outputSchema, rag, dataAnalysis, tools, a.WebhookURL, groupID)
	if err != nil {
		return fmt.Errorf("registry: save agent %q: %w", a.ID, err)
	}
	return nil
}

// Delete removes an agent row.
func (s *DBStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id=$1`, id)
	return err
}
