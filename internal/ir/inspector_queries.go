package ir

// The nine catalog queries that make up the introspector's query plan.
// Each is templated with a %s placeholder for the WHERE-clause fragment
// built by Inspector.schemaFilterSQL (pg_toast*/pg_temp* exclusion plus any
// caller-supplied target-schema restriction); the roles query receives an
// empty fragment. Schemas that defaults.IsExcludedSchema considers managed
// are not filtered here but by the Inspector after decoding.

const queryEnums = `
select
  n.nspname as schema,
  t.typname as name,
  coalesce(array_agg(e.enumlabel order by e.enumsortorder), '{}') as values,
  coalesce(obj_description(t.oid, 'pg_type'), '') as comment,
  coalesce(ext.extname, '') as extension
from pg_type t
join pg_namespace n on n.oid = t.typnamespace
left join pg_enum e on e.enumtypid = t.oid
left join pg_depend d on d.objid = t.oid and d.deptype = 'e'
left join pg_extension ext on ext.oid = d.refobjid
where t.typtype = 'e'
  %s
group by n.nspname, t.typname, t.oid, ext.extname
`

const queryCompositeTypes = `
select
  n.nspname as schema,
  t.typname as name,
  coalesce(
    json_agg(json_build_object('name', a.attname, 'data_type', format_type(a.atttypid, a.atttypmod))
      order by a.attnum) filter (where a.attnum > 0 and not a.attisdropped),
    '[]'
  ) as attrs,
  coalesce(obj_description(t.oid, 'pg_type'), '') as comment,
  coalesce(ext.extname, '') as extension
from pg_type t
join pg_namespace n on n.oid = t.typnamespace
join pg_class c on c.oid = t.typrelid and c.relkind = 'c'
left join pg_attribute a on a.attrelid = c.oid
left join pg_depend d on d.objid = t.oid and d.deptype = 'e'
left join pg_extension ext on ext.oid = d.refobjid
where t.typtype = 'c'
  %s
group by n.nspname, t.typname, t.oid, ext.extname
`

const queryDomains = `
select
  n.nspname as schema,
  t.typname as name,
  format_type(t.typbasetype, t.typtypmod) as base_type,
  t.typnotnull as not_null,
  coalesce(t.typdefault, '') as default_value,
  coalesce(
    json_agg(json_build_object('name', con.conname, 'definition', pg_get_constraintdef(con.oid))
      order by con.conname) filter (where con.oid is not null),
    '[]'
  ) as checks,
  coalesce(obj_description(t.oid, 'pg_type'), '') as comment,
  coalesce(ext.extname, '') as extension
from pg_type t
join pg_namespace n on n.oid = t.typnamespace
left join pg_constraint con on con.contypid = t.oid
left join pg_depend d on d.objid = t.oid and d.deptype = 'e'
left join pg_extension ext on ext.oid = d.refobjid
where t.typtype = 'd'
  %s
group by n.nspname, t.typname, t.oid, ext.extname
`

const querySequences = `
select
  n.nspname as schema,
  c.relname as name,
  s.seqtypid::regtype::text as data_type,
  s.seqstart::text as start_value,
  s.seqmin::text as min_value,
  s.seqmax::text as max_value,
  s.seqincrement::text as increment,
  s.seqcycle as cycle,
  s.seqcache::text as cache_size,
  coalesce(own.owned_by, '') as owned_by,
  coalesce(ext.extname, '') as extension
from pg_sequence s
join pg_class c on c.oid = s.seqrelid
join pg_namespace n on n.oid = c.relnamespace
left join pg_depend d on d.objid = c.oid and d.deptype = 'e'
left join pg_extension ext on ext.oid = d.refobjid
left join lateral (
  select ot.relname || '.' || a.attname as owned_by
  from pg_depend dep
  join pg_class ot on ot.oid = dep.refobjid
  join pg_attribute a on a.attrelid = dep.refobjid and a.attnum = dep.refobjsubid
  where dep.objid = c.oid and dep.deptype in ('a', 'i')
  limit 1
) own on true
where true
  %s
`

const queryExtensions = `
select
  e.extname as name,
  n.nspname as schema,
  e.extversion as version
from pg_extension e
join pg_namespace n on n.oid = e.extnamespace
where true
  %s
`

const queryFunctions = `
select
  n.nspname as schema,
  p.proname as name,
  p.prokind as kind,
  pg_get_function_arguments(p.oid) as arguments_text,
  coalesce(p.prorettype::regtype::text, '') as return_type,
  l.lanname as language,
  coalesce(p.prosrc, '') as body,
  case p.provolatile when 'i' then 'IMMUTABLE' when 's' then 'STABLE' else 'VOLATILE' end as volatility,
  p.proisstrict as is_strict,
  p.prosecdef as security_definer,
  coalesce(p.proconfig, '{}') as config_params,
  coalesce(
    json_agg(distinct jsonb_build_object('grantee', g.grantee, 'privilege', g.privilege_type))
      filter (where g.privilege_type = 'EXECUTE'),
    '[]'
  ) as grants,
  coalesce(ext.extname, '') as extension,
  coalesce(obj_description(p.oid, 'pg_proc'), '') as comment
from pg_proc p
join pg_namespace n on n.oid = p.pronamespace
join pg_language l on l.oid = p.prolang
left join pg_depend d on d.objid = p.oid and d.deptype = 'e'
left join pg_extension ext on ext.oid = d.refobjid
left join lateral (
  select (aclexplode(p.proacl)).grantee::regrole::text as grantee,
         (aclexplode(p.proacl)).privilege_type as privilege_type
) g on true
where p.prokind in ('f', 'p')
  %s
group by n.nspname, p.proname, p.oid, l.lanname, ext.extname
`

const queryRoles = `
select
  rolname as name,
  rolsuper as superuser,
  rolcreatedb as createdb,
  rolcreaterole as createrole,
  rolinherit as inherit,
  rolcanlogin as login,
  rolreplication as replication,
  rolbypassrls as bypassrls,
  rolconnlimit as connection_limit,
  coalesce(rolvaliduntil::text, '') as valid_until
from pg_roles
where true
  %s
`

// queryTablesBulk is the single statement that returns a JSON object with
// nine keyed arrays, avoiding one round trip per table. Each array
// element mirrors one of the model's nested types; the Inspector decodes
// this blob once and stitches the arrays together by (schema, table) key.
const queryTablesBulk = `
select json_build_object(
  'tables', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'name', c.relname
    )), '[]')
    from pg_class c
    join pg_namespace n on n.oid = c.relnamespace
    where c.relkind in ('r', 'p') %[1]s
  ),
  'columns', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'name', a.attname,
      'position', a.attnum,
      'data_type', case when format_type(a.atttypid, a.atttypmod) = 'ARRAY'
                     then (select t.typname from pg_type t where t.oid = a.atttypid) || '[]'
                     else format_type(a.atttypid, a.atttypmod) end,
      'udt_name', t.typname,
      'is_nullable', not a.attnotnull,
      'column_default', coalesce(pg_get_expr(ad.adbin, ad.adrelid), ''),
      'collation', coalesce(co.collname, ''),
      'is_generated', a.attgenerated = 's',
      'generation_expression', coalesce(pg_get_expr(ad.adbin, ad.adrelid), ''),
      'is_identity', a.attidentity <> '',
      'identity_generation', case a.attidentity when 'a' then 'ALWAYS' when 'd' then 'BY DEFAULT' else '' end,
      'comment', coalesce(col_description(c.oid, a.attnum), '')
    ) order by a.attnum), '[]')
    from pg_attribute a
    join pg_class c on c.oid = a.attrelid
    join pg_namespace n on n.oid = c.relnamespace
    join pg_type t on t.oid = a.atttypid
    left join pg_attrdef ad on ad.adrelid = a.attrelid and ad.adnum = a.attnum
    left join pg_collation co on co.oid = a.attcollation and co.collname <> 'default'
    where c.relkind in ('r', 'p') and a.attnum > 0 and not a.attisdropped %[1]s
  ),
  'foreign_keys', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'name', con.conname,
      'columns', (select array_agg(a.attname order by ord) from unnest(con.conkey) with ordinality as u(attnum, ord)
                  join pg_attribute a on a.attrelid = con.conrelid and a.attnum = u.attnum),
      'foreign_schema', fn.nspname, 'foreign_table', fc.relname,
      'foreign_columns', (select array_agg(a.attname order by ord) from unnest(con.confkey) with ordinality as u(attnum, ord)
                  join pg_attribute a on a.attrelid = con.confrelid and a.attnum = u.attnum),
      'on_delete', case con.confdeltype when 'c' then 'CASCADE' when 'n' then 'SET NULL' when 'd' then 'SET DEFAULT' when 'r' then 'RESTRICT' else 'NO ACTION' end,
      'on_update', case con.confupdtype when 'c' then 'CASCADE' when 'n' then 'SET NULL' when 'd' then 'SET DEFAULT' when 'r' then 'RESTRICT' else 'NO ACTION' end
    )), '[]')
    from pg_constraint con
    join pg_class c on c.oid = con.conrelid
    join pg_namespace n on n.oid = c.relnamespace
    join pg_class fc on fc.oid = con.confrelid
    join pg_namespace fn on fn.oid = fc.relnamespace
    where con.contype = 'f' %[1]s
  ),
  'indexes', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'name', ic.relname,
      'definition', pg_get_indexdef(i.indexrelid),
      'is_unique', i.indisunique, 'is_primary', i.indisprimary,
      'method', am.amname,
      'where', coalesce(pg_get_expr(i.indpred, i.indrelid), ''),
      'owning_constraint', coalesce((select con.conname from pg_constraint con where con.conindid = i.indexrelid), ''),
      'comment', coalesce(obj_description(i.indexrelid, 'pg_class'), '')
    )), '[]')
    from pg_index i
    join pg_class c on c.oid = i.indrelid
    join pg_class ic on ic.oid = i.indexrelid
    join pg_namespace n on n.oid = c.relnamespace
    join pg_am am on am.oid = ic.relam
    where c.relkind in ('r', 'p') %[1]s
  ),
  'triggers', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'name', tg.tgname,
      'tgtype', tg.tgtype,
      'definition', pg_get_triggerdef(tg.oid),
      'function_schema', fn.nspname, 'function_name', fp.proname,
      'comment', coalesce(obj_description(tg.oid, 'pg_trigger'), '')
    )), '[]')
    from pg_trigger tg
    join pg_class c on c.oid = tg.tgrelid
    join pg_namespace n on n.oid = c.relnamespace
    join pg_proc fp on fp.oid = tg.tgfoid
    join pg_namespace fn on fn.oid = fp.pronamespace
    where not tg.tgisinternal %[1]s
  ),
  'policies', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'name', pol.polname,
      'command', case pol.polcmd when 'r' then 'SELECT' when 'a' then 'INSERT' when 'w' then 'UPDATE' when 'd' then 'DELETE' else 'ALL' end,
      'roles', (select coalesce(array_agg(case when r = 0 then 'PUBLIC' else r::regrole::text end), '{}') from unnest(pol.polroles) as r),
      'using', coalesce(pg_get_expr(pol.polqual, pol.polrelid), ''),
      'with_check', coalesce(pg_get_expr(pol.polwithcheck, pol.polrelid), '')
    )), '[]')
    from pg_policy pol
    join pg_class c on c.oid = pol.polrelid
    join pg_namespace n on n.oid = c.relnamespace
    where true %[1]s
  ),
  'rls', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'enabled', c.relrowsecurity
    )), '[]')
    from pg_class c
    join pg_namespace n on n.oid = c.relnamespace
    where c.relkind in ('r', 'p') %[1]s
  ),
  'check_constraints', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'name', con.conname,
      'expression', pg_get_constraintdef(con.oid)
    )), '[]')
    from pg_constraint con
    join pg_class c on c.oid = con.conrelid
    join pg_namespace n on n.oid = c.relnamespace
    where con.contype = 'c' %[1]s
  ),
  'table_comments', (
    select coalesce(json_agg(json_build_object(
      'schema', n.nspname, 'table', c.relname, 'comment', obj_description(c.oid, 'pg_class')
    )) filter (where obj_description(c.oid, 'pg_class') is not null), '[]')
    from pg_class c
    join pg_namespace n on n.oid = c.relnamespace
    where c.relkind in ('r', 'p') %[1]s
  )
) as bulk
`

const queryViews = `
select
  n.nspname as schema,
  c.relname as name,
  pg_get_viewdef(c.oid, true) as definition,
  c.relkind = 'm' as is_materialized,
  coalesce(obj_description(c.oid, 'pg_class'), '') as comment,
  coalesce(ext.extname, '') as extension
from pg_class c
join pg_namespace n on n.oid = c.relnamespace
left join pg_depend d on d.objid = c.oid and d.deptype = 'e'
left join pg_extension ext on ext.oid = d.refobjid
where c.relkind in ('v', 'm')
  %s
`
